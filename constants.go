package main

import "time"

const (
	writeWait         = 10 * time.Second
	tickRate          = 15    // ticks per second
	targetMoveSpeed   = 180.0 // units per second for connected targets
	worldWidth        = 2400.0
	worldHeight       = 1800.0
	actorHalf         = 14.0
	navCellSize       = 25.0
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	obstacleCount   = 28
	obstacleMinSize = 40.0
	obstacleMaxSize = 160.0
	obstacleMargin  = 20.0
	spawnSafeRadius = 120.0

	// Intel broadcast cadence: once per second at the base tick rate.
	intelShareEvery = tickRate

	grenadeFuseSeconds = 1.2
	grenadeDamage      = 70.0
	rifleDamage        = 18.0
	rifleRange         = 480.0
	meleeDamage        = 35.0
	fireHitRadius      = 22.0
	fireSuppressRadius = 70.0
	footstepHearRadius = 220.0
	agentMaxHealth     = 100.0
	targetMaxHealth    = 100.0
)
