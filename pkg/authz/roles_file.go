package authz

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// roleDef is one entry in a YAML role definition file.
type roleDef struct {
	Name   string   `yaml:"name"`
	Parent string   `yaml:"parent"`
	Claims []string `yaml:"claims"`
}

type rolesFile struct {
	Roles []roleDef `yaml:"roles"`
}

// LoadRolesFile seeds a MemoryStore with the role forest declared in a YAML
// file. See SeedRoles for the format and validation rules.
func LoadRolesFile(path string, store *MemoryStore) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Join(ErrInvalidRolesFile, err)
	}
	defer f.Close()
	return SeedRoles(f, store)
}

// SeedRoles parses YAML role definitions and inserts them into the store.
// Parents are referenced by name and must be declared in the same file:
//
//	roles:
//	  - name: viewer
//	    claims: ["content:read"]
//	  - name: editor
//	    parent: viewer
//	    claims: ["content:write"]
//
// Duplicate names, unknown parents, and parent cycles are rejected: the
// resolver tolerates cycles in stored data at evaluation time, but declaring
// one in configuration is a deployment mistake worth failing on.
func SeedRoles(r io.Reader, store *MemoryStore) error {
	var file rolesFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return errors.Join(ErrInvalidRolesFile, err)
	}

	ids := make(map[string]uuid.UUID, len(file.Roles))
	for _, def := range file.Roles {
		if def.Name == "" {
			return errors.Join(ErrInvalidRolesFile, errors.New("role name is empty"))
		}
		if _, dup := ids[def.Name]; dup {
			return errors.Join(ErrInvalidRolesFile, fmt.Errorf("duplicate role %q", def.Name))
		}
		ids[def.Name] = uuid.New()
	}

	for _, def := range file.Roles {
		if def.Parent == "" {
			continue
		}
		if _, ok := ids[def.Parent]; !ok {
			return errors.Join(ErrInvalidRolesFile, fmt.Errorf("role %q references unknown parent %q", def.Name, def.Parent))
		}
	}
	if err := checkParentCycles(file.Roles); err != nil {
		return err
	}

	for _, def := range file.Roles {
		role := Role{ID: ids[def.Name], Name: def.Name}
		if def.Parent != "" {
			parentID := ids[def.Parent]
			role.ParentID = &parentID
		}
		store.UpsertRole(role, def.Claims...)
	}
	return nil
}

func checkParentCycles(defs []roleDef) error {
	parents := make(map[string]string, len(defs))
	for _, def := range defs {
		parents[def.Name] = def.Parent
	}

	for _, def := range defs {
		visited := map[string]struct{}{}
		for name := def.Name; name != ""; name = parents[name] {
			if _, seen := visited[name]; seen {
				return errors.Join(ErrInvalidRolesFile, fmt.Errorf("role %q is part of a parent cycle", name))
			}
			visited[name] = struct{}{}
		}
	}
	return nil
}
