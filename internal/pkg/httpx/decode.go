package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxBodyBytes = 1 << 20

// MustCompileSchema compiles a Draft 2020-12 schema. It panics on an invalid
// schema; schemas are constants compiled at startup.
func MustCompileSchema(name, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://vialtrack.dev/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return c.MustCompile(url)
}

// Decode reads the request body, validates it against schema (when non-nil)
// and unmarshals it into dest.
func Decode(r *http.Request, schema *jsonschema.Schema, dest interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperror.Validation("could not read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return apperror.Validation("request body is required")
	}

	if schema != nil {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var doc interface{}
		if err := dec.Decode(&doc); err != nil {
			return apperror.Validation("invalid JSON payload")
		}
		if err := schema.Validate(doc); err != nil {
			return apperror.Validation(schemaMessage(err))
		}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return apperror.Validation("invalid JSON payload")
	}
	return nil
}

// schemaMessage reduces a validation error tree to its first leaf.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return "invalid payload"
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", strings.ReplaceAll(loc, "/", "."), ve.Message)
}

func asAppError(err error) (*apperror.Error, bool) {
	var appErr *apperror.Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
