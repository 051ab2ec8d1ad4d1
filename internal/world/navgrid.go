package world

import (
	"container/heap"
	"math"
)

type navNeighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var navNeighborOffsets = [...]navNeighbor{
	{col: 0, row: -1, cost: 1, diagonal: false},
	{col: 1, row: 0, cost: 1, diagonal: false},
	{col: 0, row: 1, cost: 1, diagonal: false},
	{col: -1, row: 0, cost: 1, diagonal: false},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

// DefaultNavCellSize is the edge length of a navigation cell in world units.
const DefaultNavCellSize = 32.0

// NavGrid rasterizes the obstacle set into walkable cells and answers the
// navigation queries the AI core depends on: pathfinding, snapping arbitrary
// points onto navigable terrain, and straight-line clearance checks.
type NavGrid struct {
	cols, rows int
	cellSize   float64
	actorHalf  float64
	walkable   []bool
	obstacles  []Obstacle
	width      float64
	height     float64
}

// NewNavGrid builds a grid for a world of the given size. actorHalf is the
// radius of the circling actor used to pad obstacle edges.
func NewNavGrid(obstacles []Obstacle, width, height, cellSize, actorHalf float64) *NavGrid {
	if cellSize <= 0 {
		cellSize = DefaultNavCellSize
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	grid := &NavGrid{
		cols:      cols,
		rows:      rows,
		cellSize:  cellSize,
		actorHalf: actorHalf,
		walkable:  make([]bool, cols*rows),
		obstacles: obstacles,
		width:     width,
		height:    height,
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cx := (float64(col) + 0.5) * grid.cellSize
			cy := (float64(row) + 0.5) * grid.cellSize
			if cx < actorHalf || cx > width-actorHalf || cy < actorHalf || cy > height-actorHalf {
				continue
			}
			blocked := false
			for _, obs := range obstacles {
				if CircleRectOverlap(cx, cy, actorHalf, obs) {
					blocked = true
					break
				}
			}
			if !blocked {
				grid.walkable[row*cols+col] = true
			}
		}
	}

	return grid
}

func (g *NavGrid) inBounds(col, row int) bool {
	return g != nil && col >= 0 && row >= 0 && col < g.cols && row < g.rows
}

func (g *NavGrid) index(col, row int) int {
	return row*g.cols + col
}

func (g *NavGrid) isWalkable(col, row int) bool {
	if !g.inBounds(col, row) {
		return false
	}
	return g.walkable[g.index(col, row)]
}

func (g *NavGrid) worldPos(col, row int) Vec2 {
	return Vec2{
		X: (float64(col) + 0.5) * g.cellSize,
		Y: (float64(row) + 0.5) * g.cellSize,
	}
}

func (g *NavGrid) locate(x, y float64) (int, int, bool) {
	if g == nil || g.cols == 0 || g.rows == 0 {
		return 0, 0, false
	}
	maxX := g.width - 1
	if maxX < 0 {
		maxX = 0
	}
	maxY := g.height - 1
	if maxY < 0 {
		maxY = 0
	}
	clampedX := Clamp(x, 0, maxX)
	clampedY := Clamp(y, 0, maxY)
	col := int(clampedX / g.cellSize)
	row := int(clampedY / g.cellSize)
	if !g.inBounds(col, row) {
		return 0, 0, false
	}
	return col, row, true
}

func (g *NavGrid) canTraverseDiagonal(current navPoint, delta navNeighbor) bool {
	if g == nil || !delta.diagonal {
		return true
	}
	if !g.isWalkable(current.col+delta.col, current.row) {
		return false
	}
	return g.isWalkable(current.col, current.row+delta.row)
}

// closestWalkable breadth-first searches outward from (col,row) for the
// nearest walkable cell.
func (g *NavGrid) closestWalkable(col, row int) (int, int, bool) {
	if !g.inBounds(col, row) {
		return 0, 0, false
	}
	type node struct {
		col int
		row int
	}
	visited := make(map[int]struct{})
	queue := []node{{col: col, row: row}}
	visited[g.index(col, row)] = struct{}{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if g.walkable[g.index(current.col, current.row)] {
			return current.col, current.row, true
		}
		for _, delta := range navNeighborOffsets {
			nc := current.col + delta.col
			nr := current.row + delta.row
			if !g.inBounds(nc, nr) {
				continue
			}
			idx := g.index(nc, nr)
			if _, seen := visited[idx]; seen {
				continue
			}
			visited[idx] = struct{}{}
			queue = append(queue, node{col: nc, row: nr})
		}
	}
	return 0, 0, false
}

// SnapToNavigable returns the nearest navigable point to p, or false when the
// grid contains no walkable cell near it.
func (g *NavGrid) SnapToNavigable(p Vec2) (Vec2, bool) {
	col, row, ok := g.locate(p.X, p.Y)
	if !ok {
		return Vec2{}, false
	}
	if g.isWalkable(col, row) {
		return p, true
	}
	sc, sr, ok := g.closestWalkable(col, row)
	if !ok {
		return Vec2{}, false
	}
	return g.worldPos(sc, sr), true
}

// IsPathClear reports whether a straight walk from a to b stays on walkable
// cells. It steps the segment at half-cell resolution.
func (g *NavGrid) IsPathClear(a, b Vec2) bool {
	if g == nil {
		return false
	}
	dist := Dist(a, b)
	if dist == 0 {
		col, row, ok := g.locate(a.X, a.Y)
		return ok && g.isWalkable(col, row)
	}
	step := g.cellSize / 2
	steps := int(math.Ceil(dist / step))
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := a.X + (b.X-a.X)*t
		y := a.Y + (b.Y-a.Y)*t
		col, row, ok := g.locate(x, y)
		if !ok || !g.isWalkable(col, row) {
			return false
		}
	}
	return true
}

// RaycastBlocked reports whether the segment a→b crosses any obstacle. Unlike
// IsPathClear this ignores walkability padding and world margins; it models a
// sight line or throw arc rather than a walkable route.
func (g *NavGrid) RaycastBlocked(a, b Vec2) bool {
	if g == nil {
		return true
	}
	for _, obs := range g.obstacles {
		if SegmentRectIntersects(a, b, obs) {
			return true
		}
	}
	return false
}

type navPoint struct {
	col int
	row int
}

func (g *NavGrid) heuristic(a, b navPoint) float64 {
	dx := math.Abs(float64(a.col - b.col))
	dy := math.Abs(float64(a.row - b.row))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

type navNode struct {
	point  navPoint
	g      float64
	f      float64
	index  int
	parent *navNode
}

type navQueue []*navNode

func (pq navQueue) Len() int { return len(pq) }

func (pq navQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq navQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *navQueue) Push(x any) {
	n := len(*pq)
	item := x.(*navNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *navQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (g *NavGrid) astar(start, goal navPoint) ([]navPoint, bool) {
	open := &navQueue{}
	heap.Init(open)
	heap.Push(open, &navNode{point: start, g: 0, f: g.heuristic(start, goal)})
	gScore := map[int]float64{g.index(start.col, start.row): 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*navNode)
		currIdx := g.index(current.point.col, current.point.row)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.point == goal {
			return reconstructNavPath(current), true
		}

		for _, delta := range navNeighborOffsets {
			if delta.diagonal && !g.canTraverseDiagonal(current.point, delta) {
				continue
			}
			nc := current.point.col + delta.col
			nr := current.point.row + delta.row
			if !g.isWalkable(nc, nr) {
				continue
			}
			idx := g.index(nc, nr)
			if _, seen := closed[idx]; seen {
				continue
			}
			tentativeG := current.g + delta.cost
			if prev, ok := gScore[idx]; ok && tentativeG >= prev {
				continue
			}
			gScore[idx] = tentativeG
			next := navPoint{col: nc, row: nr}
			heap.Push(open, &navNode{
				point:  next,
				g:      tentativeG,
				f:      tentativeG + g.heuristic(next, goal),
				parent: current,
			})
		}
	}
	return nil, false
}

func reconstructNavPath(end *navNode) []navPoint {
	if end == nil {
		return nil
	}
	path := make([]navPoint, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.point)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// FindPath runs A* from (startX,startY) to target and returns world-space
// waypoints. The start is snapped to the closest walkable cell when it falls
// inside an obstacle footprint; an unreachable target fails the query.
func (g *NavGrid) FindPath(start, target Vec2) ([]Vec2, bool) {
	if g == nil {
		return nil, false
	}
	startCol, startRow, ok := g.locate(start.X, start.Y)
	if !ok {
		return nil, false
	}
	goalCol, goalRow, ok := g.locate(target.X, target.Y)
	if !ok {
		return nil, false
	}
	if !g.isWalkable(startCol, startRow) {
		sc, sr, ok := g.closestWalkable(startCol, startRow)
		if !ok {
			return nil, false
		}
		startCol, startRow = sc, sr
	}
	if !g.isWalkable(goalCol, goalRow) {
		return nil, false
	}
	nodes, ok := g.astar(navPoint{col: startCol, row: startRow}, navPoint{col: goalCol, row: goalRow})
	if !ok || len(nodes) == 0 {
		return nil, false
	}
	if len(nodes) == 1 {
		return []Vec2{target}, true
	}
	path := make([]Vec2, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		path = append(path, g.worldPos(nodes[i].col, nodes[i].row))
	}
	last := path[len(path)-1]
	if Dist(last, target) > 1 {
		path = append(path, target)
	} else {
		path[len(path)-1] = target
	}
	return path, true
}
