package protoreg

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"

	complexity "github.com/hanpama/querycost/internal/complexity"
)

// Registry holds the descriptors of the querycost.v1 API.
type Registry struct {
	file     protoreflect.FileDescriptor
	service  protoreflect.ServiceDescriptor
	analyze  protoreflect.MethodDescriptor
	outcomes map[complexity.Outcome]protoreflect.EnumNumber
	byNumber map[protoreflect.EnumNumber]complexity.Outcome
}

func newRegistry(fd protoreflect.FileDescriptor) (*Registry, error) {
	svc := fd.Services().ByName(nameService("Complexity"))
	if svc == nil {
		return nil, fmt.Errorf("protoreg: service %s missing from %s", ServiceName, fd.Path())
	}
	md := svc.Methods().ByName(AnalyzeMethod)
	if md == nil {
		return nil, fmt.Errorf("protoreg: method %s missing from %s", AnalyzeMethod, svc.FullName())
	}
	enum := fd.Enums().ByName("Outcome")
	if enum == nil {
		return nil, fmt.Errorf("protoreg: enum Outcome missing from %s", fd.Path())
	}
	r := &Registry{
		file:     fd,
		service:  svc,
		analyze:  md,
		outcomes: make(map[complexity.Outcome]protoreflect.EnumNumber, len(outcomes)),
		byNumber: make(map[protoreflect.EnumNumber]complexity.Outcome, len(outcomes)),
	}
	for _, o := range outcomes {
		v := enum.Values().ByName(nameOutcomeValue(o))
		if v == nil {
			return nil, fmt.Errorf("protoreg: enum value %s missing", nameOutcomeValue(o))
		}
		r.outcomes[o] = v.Number()
		r.byNumber[v.Number()] = o
	}
	return r, nil
}

// File returns the API file descriptor.
func (r *Registry) File() protoreflect.FileDescriptor { return r.file }

// Service returns the ComplexityService descriptor.
func (r *Registry) Service() protoreflect.ServiceDescriptor { return r.service }

// Analyze returns the descriptor of ComplexityService.Analyze.
func (r *Registry) Analyze() protoreflect.MethodDescriptor { return r.analyze }

// FullMethod returns the gRPC method path of md, "/<service>/<method>".
func FullMethod(md protoreflect.MethodDescriptor) string {
	return fmt.Sprintf("/%s/%s", md.Parent().FullName(), md.Name())
}

// OutcomeNumber returns the enum number of o. Unknown outcomes map to the
// unspecified value.
func (r *Registry) OutcomeNumber(o complexity.Outcome) protoreflect.EnumNumber {
	return r.outcomes[o]
}

// Outcome maps an enum number back to the outcome it encodes.
func (r *Registry) Outcome(n protoreflect.EnumNumber) complexity.Outcome {
	return r.byNumber[n]
}
