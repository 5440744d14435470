package protoreg

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Numbers are derived from names, so adding a field never renumbers its
// siblings and clients built against an older file keep decoding.
const (
	maxNumber     = 31767
	reservedFirst = 19000
	reservedLast  = 19999
)

type named interface {
	Name() protoreflect.Name
}

func allocateFieldNumbers(fields []*protobuilder.FieldBuilder) error {
	nums, err := numberByName(fields)
	if err != nil {
		return err
	}
	for i, fb := range fields {
		fb.SetNumber(protoreflect.FieldNumber(nums[i]))
	}
	return nil
}

func allocateEnumValueNumbers(values []*protobuilder.EnumValueBuilder) error {
	nums, err := numberByName(values)
	if err != nil {
		return err
	}
	for i, evb := range values {
		evb.SetNumber(protoreflect.EnumNumber(nums[i]))
	}
	return nil
}

// numberByName hashes each name with FNV-32a into 1..maxNumber. Collisions
// are resolved in name order by stepping to the next free number, wrapping to 1 and stepping
// over the range protobuf reserves for itself.
func numberByName[T named](items []T) ([]int, error) {
	if len(items) > maxNumber-(reservedLast-reservedFirst+1) {
		return nil, fmt.Errorf("protoreg: %d names exceed the tag space", len(items))
	}
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].Name() < items[order[b]].Name()
	})

	out := make([]int, len(items))
	used := make(map[int]bool, len(items))
	for _, i := range order {
		n := int(fnv32(string(items[i].Name()))%maxNumber) + 1
		for used[n] || (n >= reservedFirst && n <= reservedLast) {
			n = n%maxNumber + 1
		}
		used[n] = true
		out[i] = n
	}
	return out, nil
}

func fnv32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
