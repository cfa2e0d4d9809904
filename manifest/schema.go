package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schemaSource constrains a decoded manifest. Field names follow the json
// tags on Manifest.
const schemaSource = `
#NonEmpty: string & =~"^.+$"

#Dependency: {
	git?:  #NonEmpty
	tag?:  string
	path?: #NonEmpty
}

#Manifest: {
	project: {
		name:     string
		version?: string
	}
	source: dirs: [#NonEmpty, ...#NonEmpty]
	output: {
		dir?:   string
		xml:    bool
		tokens: bool
	}
	compiler: {
		"operator-order": "left-to-right" | "deferred"
		workers:          int & >=1 & <=256
	}
	cache: {
		enabled?: bool
		path:     #NonEmpty
	}
	dependencies?: [string]: #Dependency
}
`

// Validate checks m against the manifest schema. It is called by Load
// after defaults have been applied.
func Validate(m *Manifest) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling manifest schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))

	value := ctx.Encode(m)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return err
	}

	for name, dep := range m.Dependencies {
		if (dep.Git == "") == (dep.Path == "") {
			return fmt.Errorf("dependency %q must set exactly one of git or path", name)
		}
	}
	return nil
}
