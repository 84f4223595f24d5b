package utils

import "github.com/invopop/jsonschema"

// GenerateSchema creates a JSON schema for validating data structures.
// The generated schema is strict (no additional properties allowed) and fully
// inlined so it can be handed to an LLM as a structured response format.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var v T

	return reflector.Reflect(v)
}
