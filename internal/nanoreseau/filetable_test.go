package nanoreseau

import "testing"

func testApp() ApplicationFile {
	return ApplicationFile{Drive: 'A', FileName: "GAME.BAS"}
}

func TestFileTableGetOrCreateAllocatesLogicalNumbers(t *testing.T) {
	ft := NewFileTable()
	e1, err := ft.GetOrCreate(ApplicationFile{Drive: 'A', FileName: "ONE.BAS"})
	if err != nil {
		t.Fatalf("get_or_create: %v", err)
	}
	if e1.LogicalNb != 1 {
		t.Errorf("logical number = %d, want 1", e1.LogicalNb)
	}
	e2, err := ft.GetOrCreate(ApplicationFile{Drive: 'A', FileName: "TWO.BAS"})
	if err != nil {
		t.Fatalf("get_or_create: %v", err)
	}
	if e2.LogicalNb != 2 {
		t.Errorf("logical number = %d, want 2", e2.LogicalNb)
	}

	same, err := ft.GetOrCreate(ApplicationFile{Drive: 'A', FileName: "one.bas"})
	if err != nil {
		t.Fatalf("get_or_create: %v", err)
	}
	if same != e1 {
		t.Errorf("expected case-insensitive lookup to return the same entry")
	}
}

func TestFileTableReaderLocking(t *testing.T) {
	ft := NewFileTable()
	entry, _ := ft.GetOrCreate(testApp())

	if err := ft.AddReader(entry, 1); err != nil {
		t.Fatalf("first reader: %v", err)
	}
	if err := ft.AddReader(entry, 2); err != nil {
		t.Fatalf("second reader: %v", err)
	}
	if err := ft.AddWriter(entry, 3); ErrorCode(err) != FileAlreadyOpenForRead {
		t.Errorf("writer while readers open: err = %v, want FILE_ALREADY_OPEN_FOR_READ", err)
	}
}

func TestFileTableWriterExclusion(t *testing.T) {
	ft := NewFileTable()
	entry, _ := ft.GetOrCreate(testApp())

	if err := ft.AddWriter(entry, 1); err != nil {
		t.Fatalf("first writer: %v", err)
	}
	if err := ft.AddWriter(entry, 1); err != nil {
		t.Errorf("same-station re-write: err = %v, want nil", err)
	}
	if err := ft.AddWriter(entry, 2); ErrorCode(err) != FileAlreadyOpenForWriteOther {
		t.Errorf("other-station write: err = %v, want FILE_ALREADY_OPEN_FOR_WRITE_OTHER_STA", err)
	}
	if err := ft.AddReader(entry, 2); ErrorCode(err) != FileAlreadyOpenForWriteOther {
		t.Errorf("other-station read while written: err = %v", err)
	}
}

func TestFileTableReserveExclusion(t *testing.T) {
	ft := NewFileTable()
	entry, _ := ft.GetOrCreate(testApp())

	if err := ft.Reserve(entry, 1); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := ft.AddReader(entry, 2); ErrorCode(err) != FileAlreadyReserved {
		t.Errorf("read while reserved by other: err = %v, want FILE_ALREADY_RESERVED", err)
	}
}

func TestFileTableCloseRemovesEntryWhenUnheld(t *testing.T) {
	ft := NewFileTable()
	entry, _ := ft.GetOrCreate(testApp())
	if err := ft.AddReader(entry, 1); err != nil {
		t.Fatalf("reader: %v", err)
	}
	ft.Close(entry, 1)

	if len(ft.entries) != 0 {
		t.Fatalf("expected entry to be removed once unheld, have %d entries", len(ft.entries))
	}

	// Logical numbers should be reusable once released.
	fresh, err := ft.GetOrCreate(testApp())
	if err != nil {
		t.Fatalf("get_or_create after close: %v", err)
	}
	if fresh.LogicalNb != 1 {
		t.Errorf("logical number after release = %d, want 1", fresh.LogicalNb)
	}
}

func TestFileTableByLogicalNumberMissing(t *testing.T) {
	ft := NewFileTable()
	if _, err := ft.ByLogicalNumber(42); ErrorCode(err) != BadLogicNumber {
		t.Errorf("missing logical number: err = %v, want BAD_LOGIC_NUMBER", err)
	}
}
