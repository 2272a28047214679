package helper

import (
	"fmt"
	"strings"

	"github.com/caronae/caronae-dw/logger"
	om "github.com/cevaris/ordered_map"
)

// StringSliceToOrderedMap converts {a, b} into an ordered map of a:a, b:b with spaces trimmed.
func StringSliceToOrderedMap(s []string) *om.OrderedMap {
	o := om.NewOrderedMap()
	for _, v := range s {
		v = strings.TrimSpace(v)
		if v != "" {
			o.Set(v, v)
		}
	}
	return o
}

// OrderedMapValuesToStringSlice appends the values found in ordered map 'o' to 'l' starting at index 'idx'.
// Output - this function modifies the supplied list 'l' and 'idx' by reference.
func OrderedMapValuesToStringSlice(log logger.Logger, o *om.OrderedMap, l *[]string, idx *int) {
	iter := o.IterFunc()
	if iter == nil {
		log.Panic("Failed to get iterFunc in OrderedMapValuesToStringSlice()")
	}
	for kv, ok := iter(); ok; kv, ok = iter() {
		(*l)[*idx] = kv.Value.(string)
		*idx++
	}
}

// CsvToStringSliceTrimSpaces splits s on commas, trims spaces and drops empty tokens.
func CsvToStringSliceTrimSpaces(s string) []string {
	retval := make([]string, 0)
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			retval = append(retval, v)
		}
	}
	return retval
}

// GenerateSliceOfColsEqualCols returns "col1 = src.col1", "col2 = src.col2", ...
// Supply an empty tgtAlias to leave the left hand side unqualified.
func GenerateSliceOfColsEqualCols(colList []string, tgtAlias string, srcAlias string) []string {
	retval := make([]string, len(colList))
	for idx, col := range colList {
		if tgtAlias == "" {
			retval[idx] = fmt.Sprintf("%s = %s.%s", col, srcAlias, col)
		} else {
			retval[idx] = fmt.Sprintf("%s.%s = %s.%s", tgtAlias, col, srcAlias, col)
		}
	}
	return retval
}

// IsBlank returns true if s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
