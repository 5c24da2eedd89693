package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/digitalbuho/buho/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const maxBodyBytes = 1 << 20

// Messages returned in field error maps
const (
	msgRequired     = "Este campo es requerido."
	msgInvalid      = "Valor inválido."
	msgNoSuchObject = "El objeto referenciado no existe."
)

// validator holds the compiled request schemas. Each schema has a full
// variant for POST/PUT and a partial one, without "required", for PATCH.
type validator struct {
	full    map[string]*jsonschema.Schema
	partial map[string]*jsonschema.Schema
}

func newValidator() (*validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}

	v := &validator{full: map[string]*jsonschema.Schema{}, partial: map[string]*jsonschema.Schema{}}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		raw, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		if v.full[name], err = compileSchema(name, raw); err != nil {
			return nil, err
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		delete(doc, "required")
		loose, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		if v.partial[name], err = compileSchema(name+"-partial", loose); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func compileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return schema, nil
}

// decode reads a JSON body, validates it against the named schema and
// unmarshals it onto dst. With partial set, fields absent from the body
// keep the values already in dst.
func (v *validator) decode(r *http.Request, name string, partial bool, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("No se pudo leer el cuerpo de la solicitud.")
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return badRequest("JSON mal formado: " + err.Error())
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return badRequest("Se esperaba un objeto JSON.")
	}

	schema := v.full[name]
	if partial {
		schema = v.partial[name]
	}
	if schema == nil {
		return fmt.Errorf("unknown schema %q", name)
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return schemaErrors(ve)
		}
		return err
	}
	if fe := checkCodes(obj); len(fe) > 0 {
		return fe
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return badRequest("JSON inválido: " + err.Error())
	}
	return nil
}

var quoted = regexp.MustCompile(`'([^']+)'`)

// schemaErrors flattens a validation error tree into a field map
func schemaErrors(ve *jsonschema.ValidationError) fieldErrors {
	fe := fieldErrors{}
	collectSchemaErrors(fe, ve)
	if len(fe) == 0 {
		fe.add(nonFieldErrors, ve.Message)
	}
	return fe
}

func collectSchemaErrors(fe fieldErrors, ve *jsonschema.ValidationError) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectSchemaErrors(fe, cause)
		}
		return
	}

	if strings.HasSuffix(ve.KeywordLocation, "/required") {
		for _, m := range quoted.FindAllStringSubmatch(ve.Message, -1) {
			fe.add(m[1], msgRequired)
		}
		return
	}

	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if i := strings.Index(field, "/"); i >= 0 {
		field = field[:i]
	}
	if field == "" {
		field = nonFieldErrors
	}
	fe.add(field, ve.Message)
}

// checkCodes rejects priority and status spellings nothing maps to. Blank
// values fall back to the defaults.
func checkCodes(obj map[string]any) fieldErrors {
	fe := fieldErrors{}
	if s, ok := obj["prioridad"].(string); ok && strings.TrimSpace(s) != "" {
		if _, known := models.ParsePriority(s); !known {
			fe.add("prioridad", fmt.Sprintf("%q no es una elección válida.", s))
		}
	}
	if s, ok := obj["estado"].(string); ok && strings.TrimSpace(s) != "" {
		if _, known := models.ParseStatus(s); !known {
			fe.add("estado", fmt.Sprintf("%q no es una elección válida.", s))
		}
	}
	return fe
}
