package server

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

type methodType struct {
	method    reflect.Method
	ArgType   reflect.Type
	ReplyType reflect.Type
}

// service is one receiver mounted at a uri. Its RPC methods are the exported methods of
// the form func(*Args, *Reply) error, named on the wire with a lower-case first letter:
// Arith.Add is called as uri "/arith", method "add".
type service struct {
	uri     string
	rcvr    reflect.Value
	typ     reflect.Type
	methods map[string]*methodType
}

func newService(uri string, rcvr any) (*service, error) {
	if uri == "" {
		return nil, fmt.Errorf("rpc: empty uri")
	}
	typ := reflect.TypeOf(rcvr)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("rpc: receiver for %s must be a pointer, got %v", uri, typ)
	}
	if typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("rpc: receiver for %s must point to a struct, got %s", uri, typ.Elem().Kind())
	}

	svc := &service{
		uri:     uri,
		rcvr:    reflect.ValueOf(rcvr),
		typ:     typ,
		methods: make(map[string]*methodType),
	}
	if svc.registerMethods() == 0 {
		return nil, fmt.Errorf("rpc: %s has no methods of the form func(*Args, *Reply) error", typ)
	}
	return svc, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (s *service) registerMethods() int {
	for i := 0; i < s.typ.NumMethod(); i++ {
		method := s.typ.Method(i)
		mt := method.Type
		if mt.NumIn() != 3 || mt.NumOut() != 1 || mt.Out(0) != errorType ||
			mt.In(1).Kind() != reflect.Ptr || mt.In(2).Kind() != reflect.Ptr {
			continue
		}

		s.methods[wireName(method.Name)] = &methodType{
			method:    method,
			ArgType:   mt.In(1).Elem(),
			ReplyType: mt.In(2).Elem(),
		}
	}
	return len(s.methods)
}

func (s *service) call(m *methodType, argv, replyv reflect.Value) error {
	results := m.method.Func.Call([]reflect.Value{s.rcvr, argv, replyv})
	if err, _ := results[0].Interface().(error); err != nil {
		return err
	}
	return nil
}

func wireName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}
