package readcode

import "testing"

func TestParseArgsRejectsEmptyPath(t *testing.T) {
	if _, err := ParseArgs(`{"path":"  "}`); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestParseArgsRejectsSymbolLookup(t *testing.T) {
	if _, err := ParseArgs(`{"path":"a.go","symbol":"Foo"}`); err == nil {
		t.Fatal("expected error for symbol lookup")
	}
}

func TestParseArgsRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseArgs(`{`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseArgsAcceptsBarePath(t *testing.T) {
	args, err := ParseArgs(`{"path":"a.go"}`)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.Path != "a.go" || args.Lines != nil {
		t.Errorf("args = %+v", args)
	}
}

func TestLinesUnmarshalsPairForm(t *testing.T) {
	args, err := ParseArgs(`{"path":"a.go","lines":[3,8]}`)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	ranges, err := args.Lines.ToRanges()
	if err != nil {
		t.Fatalf("ToRanges: %v", err)
	}
	if len(ranges) != 1 || ranges[0].Lo != 3 || ranges[0].Hi != 8 {
		t.Errorf("ranges = %v", ranges)
	}
}

func TestLinesUnmarshalsObjectFormWithImpliedEnd(t *testing.T) {
	args, err := ParseArgs(`{"path":"a.go","lines":{"start":4}}`)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	ranges, err := args.Lines.ToRanges()
	if err != nil {
		t.Fatalf("ToRanges: %v", err)
	}
	if len(ranges) != 1 || ranges[0].Lo != 4 || ranges[0].Hi != 4 {
		t.Errorf("ranges = %v", ranges)
	}
}

func TestLinesUnmarshalsObjectFormWithExplicitEnd(t *testing.T) {
	args, err := ParseArgs(`{"path":"a.go","lines":{"start":4,"end":9}}`)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	ranges, err := args.Lines.ToRanges()
	if err != nil {
		t.Fatalf("ToRanges: %v", err)
	}
	if ranges[0].Hi != 9 {
		t.Errorf("ranges = %v", ranges)
	}
}

func TestLinesRejectsMultipleRanges(t *testing.T) {
	args, err := ParseArgs(`{"path":"a.go","lines":[[1,2],[3,4]]}`)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if _, err := args.Lines.ToRanges(); err == nil {
		t.Fatal("expected error for multiple ranges")
	}
}

func TestLinesRejectsEmptyRangeList(t *testing.T) {
	args, err := ParseArgs(`{"path":"a.go","lines":[]}`)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if _, err := args.Lines.ToRanges(); err == nil {
		t.Fatal("expected error for empty range list")
	}
}
