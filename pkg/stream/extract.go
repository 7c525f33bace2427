package stream

import (
	"encoding/json"
)

// Result is everything recoverable from a buffer so far.
type Result struct {
	Nodes       []RawNode
	Edges       []RawEdge
	Groups      []RawGroup
	Direction   string
	DiagramType string

	// Complete is true once the closing brace of the top-level object has
	// been seen.
	Complete bool
}

// RecordCount is the number of complete records of every type.
func (r Result) RecordCount() int {
	return len(r.Nodes) + len(r.Edges) + len(r.Groups)
}

// Empty reports whether nothing has been recovered yet.
func (r Result) Empty() bool {
	return r.RecordCount() == 0 && r.Direction == "" && r.DiagramType == ""
}

type state uint8

const (
	stateScanning state = iota // walking the top-level object for keys
	stateInArray               // between records of a recognised array
	stateInRecord              // inside a balanced record
	stateInString              // inside a string literal
	stateEscaped               // just after a backslash in a string
)

func (s state) String() string {
	switch s {
	case stateScanning:
		return "scanning"
	case stateInArray:
		return "in-array"
	case stateInRecord:
		return "in-record"
	case stateInString:
		return "in-string"
	case stateEscaped:
		return "escaped"
	}
	return "unknown"
}

// Record arrays and top-level string fields the scanner recognises.
const (
	keyNodes       = "nodes"
	keyEdges       = "edges"
	keyGroups      = "groups"
	keyDirection   = "direction"
	keyDiagramType = "diagramType"
)

// Extract recovers every complete record from buf, which may end at any
// byte. It is a pure function of buf: calling it twice returns equal
// results, and every record found in a prefix is found again, unchanged, in
// any extension of that prefix.
//
// Text before the first '{' is ignored, so fenced or prose-wrapped payloads
// work. Records that are balanced but fail to decode are skipped.
func Extract(buf string) Result {
	sc := scanner{buf: buf}
	sc.run()
	return sc.res
}

type scanner struct {
	buf string
	res Result

	st  state
	ret state // state to resume after a string closes

	started bool
	depth   int // nesting depth; the top-level object is 1

	key        string // last key read at depth 1
	afterColon bool   // a ':' followed key; next token is its value
	strStart   int    // offset of the opening quote of a captured string
	capture    bool   // current string is a depth-1 key or value

	array     string // recognised array being walked
	recStart  int
	recDepth  int
	arrayOpen int // depth of the array's own bracket
}

func (sc *scanner) run() {
	for i := 0; i < len(sc.buf); i++ {
		c := sc.buf[i]
		if !sc.started {
			if c == '{' {
				sc.started = true
				sc.depth = 1
			}
			continue
		}
		switch sc.st {
		case stateEscaped:
			sc.st = stateInString

		case stateInString:
			switch c {
			case '\\':
				sc.st = stateEscaped
			case '"':
				sc.st = sc.ret
				if sc.capture {
					sc.captured(sc.buf[sc.strStart : i+1])
				}
			}

		case stateInRecord:
			switch c {
			case '"':
				sc.enterString(stateInRecord, i, false)
			case '{', '[':
				sc.recDepth++
			case '}', ']':
				sc.recDepth--
				if sc.recDepth == 0 {
					sc.emit(sc.buf[sc.recStart : i+1])
					sc.st = stateInArray
				}
			}

		case stateInArray:
			switch c {
			case '{':
				sc.recStart = i
				sc.recDepth = 1
				sc.st = stateInRecord
			case '"':
				sc.enterString(stateInArray, i, false)
			case '[':
				sc.depth++
			case ']':
				sc.depth--
				if sc.depth < sc.arrayOpen {
					sc.array = ""
					sc.st = stateScanning
				}
			}

		case stateScanning:
			if sc.scan(c, i) {
				return
			}
		}
	}
}

// scan handles one byte outside recognised arrays. It returns true once the
// top-level object has closed.
func (sc *scanner) scan(c byte, i int) bool {
	switch c {
	case '"':
		sc.enterString(stateScanning, i, sc.depth == 1)
	case ':':
		if sc.depth == 1 {
			sc.afterColon = true
		}
	case ',':
		if sc.depth == 1 {
			sc.key, sc.afterColon = "", false
		}
	case '[':
		sc.depth++
		if sc.depth == 2 && sc.afterColon && isArrayKey(sc.key) {
			sc.array = sc.key
			sc.arrayOpen = sc.depth
			sc.st = stateInArray
		}
	case '{':
		sc.depth++
	case ']':
		sc.depth--
	case '}':
		sc.depth--
		if sc.depth == 0 {
			sc.res.Complete = true
			return true
		}
	}
	return false
}

func (sc *scanner) enterString(ret state, i int, capture bool) {
	sc.ret = ret
	sc.st = stateInString
	sc.capture = capture
	sc.strStart = i
}

// captured handles a complete depth-1 string literal: either a key or the
// value of the current key.
func (sc *scanner) captured(lit string) {
	var s string
	if json.Unmarshal([]byte(lit), &s) != nil {
		return
	}
	if !sc.afterColon {
		sc.key = s
		return
	}
	switch sc.key {
	case keyDirection:
		sc.res.Direction = s
	case keyDiagramType:
		sc.res.DiagramType = s
	}
}

func (sc *scanner) emit(record string) {
	b := []byte(record)
	switch sc.array {
	case keyNodes:
		var n RawNode
		if json.Unmarshal(b, &n) == nil {
			sc.res.Nodes = append(sc.res.Nodes, n)
		}
	case keyEdges:
		var e RawEdge
		if json.Unmarshal(b, &e) == nil {
			sc.res.Edges = append(sc.res.Edges, e)
		}
	case keyGroups:
		var g RawGroup
		if json.Unmarshal(b, &g) == nil {
			sc.res.Groups = append(sc.res.Groups, g)
		}
	}
}

func isArrayKey(k string) bool {
	return k == keyNodes || k == keyEdges || k == keyGroups
}
