package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator instance เดียวทั้ง app พร้อม custom tag
//
//	videoid: id ที่ผ่าน IsValidVideoID
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterValidation("videoid", func(fl validator.FieldLevel) bool {
			return IsValidVideoID(fl.Field().String())
		})
		// ชื่อ field ใน error ตาม json/query tag ที่ client เห็น
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "query"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// ValidateStruct ตรวจ struct ตาม validate tag
func ValidateStruct(s any) error {
	return Validator().Struct(s)
}

// GetValidationErrors แปลง validation error เป็น map field -> message
func GetValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = "invalid request"
		return out
	}

	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out[field] = "is required"
		case "max":
			out[field] = "must be at most " + fe.Param() + " characters"
		case "videoid":
			out[field] = "must contain only a-z, 0-9, '-' or '_'"
		default:
			out[field] = "is invalid"
		}
	}
	return out
}
