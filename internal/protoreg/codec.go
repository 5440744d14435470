package protoreg

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	complexity "github.com/hanpama/querycost/internal/complexity"
)

// Report is the transport-neutral form of an AnalyzeResponse.
type Report struct {
	Accepted          bool              `json:"accepted"`
	Complexity        float64           `json:"complexity"`
	MaximumComplexity float64           `json:"maximumComplexity"`
	Operations        []OperationReport `json:"operations"`
	Errors            []ErrorReport     `json:"errors,omitempty"`
}

type OperationReport struct {
	Name       string             `json:"name,omitempty"`
	Operation  string             `json:"operation"`
	Complexity float64            `json:"complexity"`
	Nodes      int                `json:"nodes"`
	Outcome    complexity.Outcome `json:"outcome"`
}

type ErrorReport struct {
	Message   string     `json:"message"`
	Code      string     `json:"code,omitempty"`
	Rule      string     `json:"rule,omitempty"`
	Locations []Location `json:"locations,omitempty"`
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// NewReport summarizes res for a client.
func NewReport(res *analyzer.Result, maximum float64) Report {
	rep := Report{
		Accepted:          res.Accepted(),
		Complexity:        res.Complexity(),
		MaximumComplexity: maximum,
	}
	for _, st := range res.Operations {
		rep.Operations = append(rep.Operations, OperationReport{
			Name:       st.Name,
			Operation:  string(st.Operation),
			Complexity: st.Complexity,
			Nodes:      st.Nodes,
			Outcome:    st.Outcome,
		})
	}
	for _, e := range res.Errors {
		er := ErrorReport{Message: e.Message, Code: complexity.Code(e), Rule: e.Rule}
		for _, loc := range e.Locations {
			er.Locations = append(er.Locations, Location{Line: loc.Line, Column: loc.Column})
		}
		rep.Errors = append(rep.Errors, er)
	}
	return rep
}

// EncodeRequest builds an AnalyzeRequest message.
func (r *Registry) EncodeRequest(req analyzer.Request) (*dynamicpb.Message, error) {
	md := r.analyze.Input()
	msg := dynamicpb.NewMessage(md)
	setString(msg, "query", req.Query)
	setString(msg, "operation_name", req.OperationName)
	if len(req.Variables) > 0 {
		b, err := json.Marshal(req.Variables)
		if err != nil {
			return nil, fmt.Errorf("protoreg: encode variables: %w", err)
		}
		setString(msg, "variables", string(b))
	}
	return msg, nil
}

// DecodeRequest reads an AnalyzeRequest message.
func (r *Registry) DecodeRequest(msg protoreflect.Message) (analyzer.Request, error) {
	req := analyzer.Request{
		Query:         getString(msg, "query"),
		OperationName: getString(msg, "operation_name"),
	}
	if v := getString(msg, "variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
			return analyzer.Request{}, fmt.Errorf("protoreg: variables must be a JSON object: %w", err)
		}
	}
	return req, nil
}

// EncodeReport builds an AnalyzeResponse message.
func (r *Registry) EncodeReport(rep Report) *dynamicpb.Message {
	md := r.analyze.Output()
	msg := dynamicpb.NewMessage(md)
	msg.Set(md.Fields().ByName("accepted"), protoreflect.ValueOfBool(rep.Accepted))
	msg.Set(md.Fields().ByName("complexity"), protoreflect.ValueOfFloat64(rep.Complexity))
	msg.Set(md.Fields().ByName("maximum_complexity"), protoreflect.ValueOfFloat64(rep.MaximumComplexity))

	opsField := md.Fields().ByName("operations")
	ops := msg.Mutable(opsField).List()
	for _, op := range rep.Operations {
		item := dynamicpb.NewMessage(opsField.Message())
		setString(item, "name", op.Name)
		setString(item, "operation", op.Operation)
		item.Set(item.Descriptor().Fields().ByName("complexity"), protoreflect.ValueOfFloat64(op.Complexity))
		item.Set(item.Descriptor().Fields().ByName("nodes"), protoreflect.ValueOfInt32(int32(op.Nodes)))
		item.Set(item.Descriptor().Fields().ByName("outcome"), protoreflect.ValueOfEnum(r.OutcomeNumber(op.Outcome)))
		ops.Append(protoreflect.ValueOfMessage(item))
	}

	errsField := md.Fields().ByName("errors")
	errs := msg.Mutable(errsField).List()
	for _, e := range rep.Errors {
		item := dynamicpb.NewMessage(errsField.Message())
		setString(item, "message", e.Message)
		setString(item, "code", e.Code)
		setString(item, "rule", e.Rule)
		locField := item.Descriptor().Fields().ByName("locations")
		locs := item.Mutable(locField).List()
		for _, l := range e.Locations {
			loc := dynamicpb.NewMessage(locField.Message())
			loc.Set(loc.Descriptor().Fields().ByName("line"), protoreflect.ValueOfInt32(int32(l.Line)))
			loc.Set(loc.Descriptor().Fields().ByName("column"), protoreflect.ValueOfInt32(int32(l.Column)))
			locs.Append(protoreflect.ValueOfMessage(loc))
		}
		errs.Append(protoreflect.ValueOfMessage(item))
	}
	return msg
}

// DecodeReport reads an AnalyzeResponse message.
func (r *Registry) DecodeReport(msg protoreflect.Message) Report {
	fields := msg.Descriptor().Fields()
	rep := Report{
		Accepted:          msg.Get(fields.ByName("accepted")).Bool(),
		Complexity:        msg.Get(fields.ByName("complexity")).Float(),
		MaximumComplexity: msg.Get(fields.ByName("maximum_complexity")).Float(),
	}
	ops := msg.Get(fields.ByName("operations")).List()
	for i := 0; i < ops.Len(); i++ {
		item := ops.Get(i).Message()
		f := item.Descriptor().Fields()
		rep.Operations = append(rep.Operations, OperationReport{
			Name:       getString(item, "name"),
			Operation:  getString(item, "operation"),
			Complexity: item.Get(f.ByName("complexity")).Float(),
			Nodes:      int(item.Get(f.ByName("nodes")).Int()),
			Outcome:    r.Outcome(item.Get(f.ByName("outcome")).Enum()),
		})
	}
	errs := msg.Get(fields.ByName("errors")).List()
	for i := 0; i < errs.Len(); i++ {
		item := errs.Get(i).Message()
		er := ErrorReport{
			Message: getString(item, "message"),
			Code:    getString(item, "code"),
			Rule:    getString(item, "rule"),
		}
		locs := item.Get(item.Descriptor().Fields().ByName("locations")).List()
		for j := 0; j < locs.Len(); j++ {
			loc := locs.Get(j).Message()
			lf := loc.Descriptor().Fields()
			er.Locations = append(er.Locations, Location{
				Line:   int(loc.Get(lf.ByName("line")).Int()),
				Column: int(loc.Get(lf.ByName("column")).Int()),
			})
		}
		rep.Errors = append(rep.Errors, er)
	}
	return rep
}

func setString(msg protoreflect.Message, name protoreflect.Name, v string) {
	if v == "" {
		return
	}
	msg.Set(msg.Descriptor().Fields().ByName(name), protoreflect.ValueOfString(v))
}

func getString(msg protoreflect.Message, name protoreflect.Name) string {
	fd := msg.Descriptor().Fields().ByName(name)
	if fd == nil {
		return ""
	}
	return msg.Get(fd).String()
}
