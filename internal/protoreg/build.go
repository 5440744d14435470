package protoreg

import (
	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"

	complexity "github.com/hanpama/querycost/internal/complexity"
)

const (
	// FilePath is the path of the generated proto file.
	FilePath = "querycost/v1/querycost.proto"
	// Package is the proto package of the complexity API.
	Package = "querycost.v1"
	// ServiceName is the unqualified name of the complexity service.
	ServiceName = "ComplexityService"
	// AnalyzeMethod scores one GraphQL request.
	AnalyzeMethod = "Analyze"
)

// outcomes lists the outcome enum values in declaration order.
var outcomes = []complexity.Outcome{
	complexity.OutcomeAccepted,
	complexity.OutcomeComplexityExceeded,
	complexity.OutcomeNodeLimitExceeded,
	complexity.OutcomeInvalidVariables,
}

// Build creates the descriptors of the querycost.v1 API.
func Build() (*Registry, error) {
	b := &builder{file: protobuilder.NewFile(FilePath)}
	b.file.SetPackageName(Package)
	b.file.SetSyntax(protoreflect.Proto3)

	outcome := b.addOutcomeEnum()

	location := b.addMessage("Location", "",
		scalarField("line", protoreflect.Int32Kind),
		scalarField("column", protoreflect.Int32Kind),
	)
	errMsg := b.addMessage("Error", "A validation or limit error reported for the request.",
		scalarField("message", protoreflect.StringKind),
		scalarField("code", protoreflect.StringKind),
		scalarField("rule", protoreflect.StringKind),
		repeated(protobuilder.NewField(nameProtoField("locations"), protobuilder.FieldTypeMessage(location))),
	)
	stats := b.addMessage("OperationStats", "Score of a single operation.",
		scalarField("name", protoreflect.StringKind),
		scalarField("operation", protoreflect.StringKind),
		scalarField("complexity", protoreflect.DoubleKind),
		scalarField("nodes", protoreflect.Int32Kind),
		protobuilder.NewField(nameProtoField("outcome"), protobuilder.FieldTypeEnum(outcome)),
	)
	request := b.addMessage("AnalyzeRequest", "",
		scalarField("query", protoreflect.StringKind),
		scalarField("operationName", protoreflect.StringKind),
		withComment(scalarField("variables", protoreflect.StringKind), "Variables as a JSON object."),
	)
	response := b.addMessage("AnalyzeResponse", "",
		scalarField("accepted", protoreflect.BoolKind),
		withComment(scalarField("complexity", protoreflect.DoubleKind), "Highest score among the analyzed operations."),
		scalarField("maximumComplexity", protoreflect.DoubleKind),
		repeated(protobuilder.NewField(nameProtoField("operations"), protobuilder.FieldTypeMessage(stats))),
		repeated(protobuilder.NewField(nameProtoField("errors"), protobuilder.FieldTypeMessage(errMsg))),
	)

	svc := protobuilder.NewService(nameService("Complexity"))
	method := protobuilder.NewMethod(AnalyzeMethod,
		protobuilder.RpcTypeMessage(request, false),
		protobuilder.RpcTypeMessage(response, false),
	)
	method.SetComments(comment("Analyze scores a GraphQL request against the loaded schema."))
	svc.AddMethod(method)
	b.file.AddService(svc)

	if b.err != nil {
		return nil, b.err
	}
	fd, err := b.file.Build()
	if err != nil {
		return nil, err
	}
	return newRegistry(fd)
}

// builder keeps the first numbering error so Build can report it once.
type builder struct {
	file *protobuilder.FileBuilder
	err  error
}

func (b *builder) keep(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) addMessage(name, desc string, fields ...*protobuilder.FieldBuilder) *protobuilder.MessageBuilder {
	mb := protobuilder.NewMessage(protoreflect.Name(name))
	mb.SetComments(comment(desc))
	b.keep(allocateFieldNumbers(fields))
	for _, fb := range fields {
		mb.AddField(fb)
	}
	b.file.AddMessage(mb)
	return mb
}

func (b *builder) addOutcomeEnum() *protobuilder.EnumBuilder {
	eb := protobuilder.NewEnum("Outcome")
	eb.SetComments(comment("Outcome of scoring one operation."))

	zero := protobuilder.NewEnumValue(nameProtoEnumValue("Outcome", "UNSPECIFIED"))
	zero.SetNumber(0)
	eb.AddValue(zero)

	evbs := make([]*protobuilder.EnumValueBuilder, len(outcomes))
	for i, o := range outcomes {
		evbs[i] = protobuilder.NewEnumValue(nameOutcomeValue(o))
	}
	b.keep(allocateEnumValueNumbers(evbs))
	for _, evb := range evbs {
		eb.AddValue(evb)
	}
	b.file.AddEnum(eb)
	return eb
}

func scalarField(name string, kind protoreflect.Kind) *protobuilder.FieldBuilder {
	return protobuilder.NewField(nameProtoField(name), protobuilder.FieldTypeScalar(kind))
}

func repeated(fb *protobuilder.FieldBuilder) *protobuilder.FieldBuilder {
	fb.SetRepeated()
	return fb
}

func withComment(fb *protobuilder.FieldBuilder, desc string) *protobuilder.FieldBuilder {
	fb.SetComments(comment(desc))
	return fb
}
