// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// maxBodyBytes caps admin request bodies. Field limits live in the
// validate tags of the request types below.
const maxBodyBytes = 2 << 20

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// fieldErrors translates validation errors into field -> message pairs.
func fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}

// draftRequest is the body of a template draft save.
type draftRequest struct {
	Markup   string `json:"markup" validate:"max=500000"`
	Style    string `json:"style" validate:"max=200000"`
	Script   string `json:"script" validate:"max=200000"`
	MockData string `json:"mock_data" validate:"omitempty,max=100000,json"`
}

type revertRequest struct {
	VersionID string `json:"version_id" validate:"required,uuid"`
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// previewRequest renders either the stored draft/published parts or the
// unsaved parts it carries. Data replaces the template's mock data.
type previewRequest struct {
	Version  string         `json:"version" validate:"omitempty,oneof=draft published"`
	Markup   *string        `json:"markup" validate:"omitempty,max=500000"`
	Style    *string        `json:"style" validate:"omitempty,max=200000"`
	Script   *string        `json:"script" validate:"omitempty,max=200000"`
	MockData string         `json:"mock_data" validate:"omitempty,max=100000,json"`
	Data     map[string]any `json:"data"`
}

type cssDraftRequest struct {
	CSS string `json:"css" validate:"max=200000"`
}
