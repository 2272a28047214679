package helper

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidateStructIsPopulated will check if any mandatory fields in cfg are missing.
// It uses struct tags to determine which fields are mandatory and the error text to fetch.
// The error text returned is just a list of the struct tags with key "errorTxt".
func ValidateStructIsPopulated(cfg interface{}) (err error) {
	errs := make([]string, 0)
	GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// GetStructErrorTxt4UnsetFields will reflect over interface i and append to errTags the errorTxt tag of every
// exported field tagged mandatory:"yes" that holds its zero value.
// Nested structs and struct values held in maps are walked recursively; slices are ignored.
func GetStructErrorTxt4UnsetFields(i interface{}, errTags *[]string) {
	val := reflect.ValueOf(i)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}
	typ := val.Type()
	for idx := 0; idx < val.NumField(); idx++ { // for each field in the struct...
		field := typ.Field(idx)
		if field.PkgPath != "" { // if the field is not exported...
			continue
		}
		f := val.Field(idx)
		switch f.Kind() {
		case reflect.Struct:
			if field.Type.PkgPath() == "time" || field.Type.PkgPath() == "net" { // leaf types that happen to be structs
				appendIfZeroAndMandatory(f, field, errTags)
			} else {
				GetStructErrorTxt4UnsetFields(f.Interface(), errTags)
			}
		case reflect.Map:
			iter := f.MapRange()
			for iter.Next() { // for each map value...
				if iter.Value().Kind() == reflect.Struct {
					GetStructErrorTxt4UnsetFields(iter.Value().Interface(), errTags)
				}
			}
		case reflect.Slice:
		default:
			appendIfZeroAndMandatory(f, field, errTags)
		}
	}
}

func appendIfZeroAndMandatory(f reflect.Value, field reflect.StructField, errTags *[]string) {
	if field.Tag.Get("mandatory") == "yes" && f.IsZero() {
		*errTags = append(*errTags, field.Tag.Get("errorTxt"))
	}
}
