package xis

import (
	"reflect"

	"github.com/matryer/is"
)

// Xis extends is with collection assertions.
type Xis struct {
	is *is.I
}

func New(i *is.I) Xis {
	return Xis{is: i}
}

// Contains asserts that the given slice or array holds an element
// deep-equal to elem.
func (x Xis) Contains(coll interface{}, elem interface{}) {
	x.is.Helper()
	v := reflect.ValueOf(coll)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if reflect.DeepEqual(v.Index(i).Interface(), elem) {
				return
			}
		}
	}
	x.is.Fail()
}
