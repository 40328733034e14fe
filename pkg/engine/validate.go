// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package engine

import (
	"fmt"
	"reflect"
	"strings"

	log "github.com/sirupsen/logrus"
	validator "gopkg.in/go-playground/validator.v9"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	if err := validate.RegisterValidation("protocol", validateProtocol); err != nil {
		log.WithError(err).Panic("Failed to register protocol validator")
	}
}

// validateProtocol accepts the query protocols, case-insensitively.
func validateProtocol(fl validator.FieldLevel) bool {
	switch strings.ToUpper(fl.Field().String()) {
	case "TCP", "UDP":
		return true
	}
	return false
}

type canIQuery struct {
	User     string `json:"user" validate:"required"`
	Verb     string `json:"verb" validate:"required"`
	Resource string `json:"resource" validate:"required"`
}

type whoCanQuery struct {
	Verb     string `json:"verb" validate:"required"`
	Resource string `json:"resource" validate:"required"`
}

type canConnectQuery struct {
	Source   PodRef `json:"source"`
	Dest     PodRef `json:"dest"`
	Port     int    `json:"port" validate:"min=0,max=65535"`
	Protocol string `json:"protocol" validate:"protocol"`
}

// validateQuery validates the query struct, converting any failures into an InvalidQueryError.
func validateQuery(q interface{}) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return invalidQuery(err.Error())
	}
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		reasons = append(reasons, describe(fe))
	}
	return invalidQuery(reasons...)
}

func describe(fe validator.FieldError) string {
	// Drop the query struct name, leaving the path of the field within the query.
	name := fe.Namespace()
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must be specified", name)
	case "min":
		return fmt.Sprintf("%s must be at least %s: %v", name, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s: %v", name, fe.Param(), fe.Value())
	case "protocol":
		return fmt.Sprintf("%s must be TCP or UDP: %q", name, fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}
