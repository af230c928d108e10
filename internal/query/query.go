package query

// Row maps column name to cell value.
type Row map[string]any

// ResultSet keeps rows in the order the engine returned them.
type ResultSet []Row

// DatabaseError carries a driver failure from statement execution. Its text
// is the driver's own message.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return e.Err.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
