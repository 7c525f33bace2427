package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/diagramflow/pkg/errors"
)

var validate = validator.New()

// Validate checks field ranges and that every selected backend has the
// settings it needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	needsRedis := c.Cache.Backend == BackendRedis || c.Session.Backend == BackendRedis
	if needsRedis && c.Redis.URL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "redis.url is required when a redis backend is selected")
	}
	if c.Presets.Backend == BackendMongo && (c.Mongo.URI == "" || c.Mongo.Database == "" || c.Mongo.Collection == "") {
		return errors.New(errors.ErrCodeInvalidInput, "mongo.uri, mongo.database and mongo.collection are required for the mongo preset store")
	}
	return nil
}

// formatValidationError joins field errors into one readable message.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(errors.ErrCodeInvalidInput, "invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := fieldPath(e.Namespace())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldPath turns "Config.Stream.ThrottleRecords" into
// "stream.throttlerecords".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}
