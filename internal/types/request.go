package types

import (
	"errors"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// GenerateRequest starts a generation job.
type GenerateRequest struct {
	BusinessName   string `json:"business_name" validate:"required,max=200"`
	Location       string `json:"location,omitempty" validate:"max=200"`
	MapListingURL  string `json:"map_listing_url,omitempty" validate:"omitempty,http_url"`
	WebsiteURL     string `json:"website_url,omitempty" validate:"omitempty,http_url"`
	FacebookURL    string `json:"facebook_url,omitempty" validate:"omitempty,http_url"`
	Instagram      string `json:"instagram,omitempty" validate:"omitempty,instagram"`
	AdditionalInfo string `json:"additional_info,omitempty" validate:"max=4000"`
	CustomDomain   string `json:"custom_domain,omitempty" validate:"omitempty,fqdn"`
	ClientEmail    string `json:"client_email,omitempty" validate:"omitempty,email"`
}

var (
	instagramHandle = regexp.MustCompile(`^@?[A-Za-z0-9._]{1,30}$`)
	validate        = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("instagram", func(fl validator.FieldLevel) bool {
		return instagramUsername(fl.Field().String()) != ""
	})
	return v
}

// Normalize trims whitespace from every field.
func (r *GenerateRequest) Normalize() {
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	r.Location = strings.TrimSpace(r.Location)
	r.MapListingURL = strings.TrimSpace(r.MapListingURL)
	r.WebsiteURL = strings.TrimSpace(r.WebsiteURL)
	r.FacebookURL = strings.TrimSpace(r.FacebookURL)
	r.Instagram = strings.TrimSpace(r.Instagram)
	r.AdditionalInfo = strings.TrimSpace(r.AdditionalInfo)
	r.CustomDomain = strings.ToLower(strings.TrimSpace(r.CustomDomain))
	r.ClientEmail = strings.TrimSpace(r.ClientEmail)
}

// Validate validates a normalized copy of the request.
func (r *GenerateRequest) Validate() error {
	c := *r
	c.Normalize()
	return validate.Struct(&c)
}

// HasLocators reports whether any source locator was supplied.
func (r *GenerateRequest) HasLocators() bool {
	return r.MapListingURL != "" || r.Location != "" || r.WebsiteURL != "" ||
		r.FacebookURL != "" || r.Instagram != ""
}

// InstagramUsername returns the profile username from a URL or @handle.
func (r *GenerateRequest) InstagramUsername() string {
	return instagramUsername(r.Instagram)
}

func instagramUsername(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		u, err := url.Parse(v)
		if err != nil {
			return ""
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if host != "instagram.com" {
			return ""
		}
		segment := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)[0]
		if !instagramHandle.MatchString(segment) || strings.HasPrefix(segment, "@") {
			return ""
		}
		return segment
	}
	if !instagramHandle.MatchString(v) {
		return ""
	}
	return strings.TrimPrefix(v, "@")
}

// FieldErrors flattens validator errors into field -> rule messages.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	out := map[string]string{}
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "is required"
		case "max":
			out[fe.Field()] = "must be at most " + fe.Param() + " characters"
		case "http_url":
			out[fe.Field()] = "must be an http(s) URL"
		case "instagram":
			out[fe.Field()] = "must be an instagram.com URL or @handle"
		default:
			out[fe.Field()] = "is not a valid " + fe.Tag()
		}
	}
	return out
}
