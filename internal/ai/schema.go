package ai

import "github.com/invopop/jsonschema"

// ConfigSchema reflects the agent authoring structures into a JSON schema for
// validation and editor tooling over config/agents.json.
func ConfigSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(authoringFile))
	schema.Title = "Manhunt Agent Config"
	schema.Description = "Validates capability descriptors and agent behavior profiles in config/agents.json"
	return schema
}
