package message

import (
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yndnr/devmesh-go/internal/core/domain"
)

// Codec errors.
var (
	ErrUnknownMessage = errors.New("message: unknown message kind")
	ErrMalformed      = errors.New("message: malformed envelope")
)

// Field names of the encoded envelope.
const (
	fieldCorrelation = "correlation_id"
	fieldTx          = "tx_id"
	fieldDevice      = "device"
	fieldWrites      = "writes"
	fieldKind        = "kind"
	fieldStore       = "store"
	fieldPath        = "path"
	fieldData        = "data"
	fieldValue       = "value"
	fieldErrors      = "errors"
)

// Encode converts an envelope to a protobuf Struct.
func Encode(env Envelope) (*structpb.Struct, error) {
	m := map[string]any{
		fieldCorrelation: strconv.FormatUint(env.CorrelationID, 10),
		fieldTx:          string(env.TxID),
		fieldDevice:      env.Device,
	}
	if env.Writes > 0 {
		m[fieldWrites] = strconv.FormatUint(env.Writes, 10)
	}

	switch {
	case env.Request != nil && env.Reply != nil:
		return nil, fmt.Errorf("%w: both request and reply set", ErrMalformed)
	case env.Request != nil:
		req := env.Request
		if _, ok := kindNames[req.Kind]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, req.Kind)
		}
		m[fieldKind] = req.Kind.String()
		m[fieldStore] = req.Store.String()
		m[fieldPath] = pathToList(req.Path)
		if req.Data != nil {
			m[fieldData] = nodeToMap(req.Data)
		}
	case env.Reply != nil:
		m[fieldKind] = Name(env.Reply)
		switch r := env.Reply.(type) {
		case *DataReply:
			m[fieldPath] = pathToList(r.Path)
			if r.Node != nil {
				m[fieldData] = nodeToMap(r.Node)
			}
		case *BooleanReply:
			m[fieldValue] = r.Value
		case *RemoteFailure:
			list := make([]any, 0, len(r.Errors))
			for _, e := range r.Errors {
				list = append(list, rpcErrorToMap(e))
			}
			m[fieldErrors] = list
		case *EmptyReadReply, *SubmitAck:
		default:
			return nil, fmt.Errorf("%w: reply %T", ErrUnknownMessage, r)
		}
	default:
		return nil, fmt.Errorf("%w: empty envelope", ErrMalformed)
	}

	return structpb.NewStruct(m)
}

// Decode converts a protobuf Struct back to an envelope.
func Decode(s *structpb.Struct) (Envelope, error) {
	if s == nil {
		return Envelope{}, fmt.Errorf("%w: nil struct", ErrMalformed)
	}
	m := s.AsMap()

	var env Envelope
	if raw, _ := m[fieldCorrelation].(string); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: correlation id: %v", ErrMalformed, err)
		}
		env.CorrelationID = id
	}
	if raw, _ := m[fieldWrites].(string); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: writes: %v", ErrMalformed, err)
		}
		env.Writes = n
	}
	env.TxID = domain.TxID(stringField(m, fieldTx))
	env.Device = stringField(m, fieldDevice)

	kind := stringField(m, fieldKind)
	if k, ok := parseKind(kind); ok {
		store, err := domain.ParseStore(stringField(m, fieldStore))
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		req := &Request{Kind: k, Store: store, Path: listToPath(m[fieldPath])}
		if data, ok := m[fieldData].(map[string]any); ok {
			req.Data = mapToNode(data)
		}
		env.Request = req
		return env, nil
	}

	switch kind {
	case "DataReply":
		data, ok := m[fieldData].(map[string]any)
		if !ok {
			return Envelope{}, fmt.Errorf("%w: DataReply without data", ErrMalformed)
		}
		env.Reply = &DataReply{Path: listToPath(m[fieldPath]), Node: mapToNode(data)}
	case "EmptyReadReply":
		env.Reply = &EmptyReadReply{}
	case "BooleanReply":
		v, _ := m[fieldValue].(bool)
		env.Reply = &BooleanReply{Value: v}
	case "SubmitAck":
		env.Reply = &SubmitAck{}
	case "RemoteFailure":
		r := &RemoteFailure{}
		list, _ := m[fieldErrors].([]any)
		for _, item := range list {
			if em, ok := item.(map[string]any); ok {
				r.Errors = append(r.Errors, mapToRPCError(em))
			}
		}
		env.Reply = r
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownMessage, kind)
	}
	return env, nil
}

// Marshal encodes an envelope to protobuf wire bytes.
func Marshal(env Envelope) ([]byte, error) {
	s, err := Encode(env)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// Unmarshal decodes protobuf wire bytes produced by Marshal.
func Unmarshal(b []byte) (Envelope, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Decode(&s)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func pathToList(p domain.Path) []any {
	list := make([]any, len(p))
	for i, seg := range p {
		list[i] = seg
	}
	return list
}

func listToPath(v any) domain.Path {
	list, _ := v.([]any)
	p := make(domain.Path, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			p = append(p, s)
		}
	}
	return p
}

func nodeToMap(n *domain.Node) map[string]any {
	m := map[string]any{"name": n.Name}
	if n.Value != "" {
		m["value"] = n.Value
	}
	if len(n.Children) > 0 {
		children := make([]any, len(n.Children))
		for i, c := range n.Children {
			children[i] = nodeToMap(c)
		}
		m["children"] = children
	}
	return m
}

func mapToNode(m map[string]any) *domain.Node {
	n := &domain.Node{
		Name:  stringField(m, "name"),
		Value: stringField(m, "value"),
	}
	children, _ := m["children"].([]any)
	for _, c := range children {
		if cm, ok := c.(map[string]any); ok {
			n.Children = append(n.Children, mapToNode(cm))
		}
	}
	return n
}

func rpcErrorToMap(e *domain.RPCError) map[string]any {
	return map[string]any{
		"severity": e.Severity.String(),
		"type":     e.Type.String(),
		"tag":      string(e.Tag),
		"app_tag":  e.AppTag,
		"message":  e.Message,
	}
}

func mapToRPCError(m map[string]any) *domain.RPCError {
	return &domain.RPCError{
		Severity: domain.ParseSeverity(stringField(m, "severity")),
		Type:     domain.ParseErrorType(stringField(m, "type")),
		Tag:      domain.ErrorTag(stringField(m, "tag")),
		AppTag:   stringField(m, "app_tag"),
		Message:  stringField(m, "message"),
	}
}
