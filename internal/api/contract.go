package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Contract names one response shape.
type Contract string

const (
	ContractInvite Contract = "invite"
	ContractStart  Contract = "start"
	ContractAnswer Contract = "answer"
	ContractFinish Contract = "finish"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "schema://qcm/"

var (
	compileOnce sync.Once
	compileErr  error
	contracts   map[Contract]*jsonschema.Schema
)

// compileContracts loads every embedded schema into a single compiler so
// that relative $refs between them resolve.
func compileContracts() error {
	compileOnce.Do(func() {
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			compileErr = fmt.Errorf("read schemas: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		for _, e := range entries {
			raw, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", e.Name(), err)
				return
			}
			var doc any
			if err := json.Unmarshal(raw, &doc); err != nil {
				compileErr = fmt.Errorf("parse schema %s: %w", e.Name(), err)
				return
			}
			if err := c.AddResource(schemaBase+e.Name(), doc); err != nil {
				compileErr = fmt.Errorf("add resource %s: %w", e.Name(), err)
				return
			}
		}

		compiled := make(map[Contract]*jsonschema.Schema)
		for _, name := range []Contract{ContractInvite, ContractStart, ContractAnswer, ContractFinish} {
			s, err := c.Compile(schemaBase + string(name) + ".json")
			if err != nil {
				compileErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
		contracts = compiled
	})
	return compileErr
}

// Validate checks raw against the named contract. It returns a
// *ContractError for malformed JSON or a shape violation.
func Validate(name Contract, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ContractError{
			Endpoint: string(name),
			Body:     raw,
			Err:      fmt.Errorf("invalid JSON: %w", err),
		}
	}

	if err := compileContracts(); err != nil {
		return &ContractError{Endpoint: string(name), Body: raw, Err: err}
	}

	s, ok := contracts[name]
	if !ok {
		return &ContractError{Endpoint: string(name), Body: raw, Err: fmt.Errorf("unknown contract %q", name)}
	}
	if err := s.Validate(parsed); err != nil {
		return &ContractError{
			Endpoint: string(name),
			Body:     raw,
			Err:      fmt.Errorf("schema validation failed: %w", err),
		}
	}
	return nil
}

// decode validates raw against the contract and unmarshals it into v.
func decode(name Contract, raw []byte, v any) error {
	if err := Validate(name, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ContractError{Endpoint: string(name), Body: raw, Err: err}
	}
	return nil
}
