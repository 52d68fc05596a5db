package tablefeat

// Sink journals committed records outside the process. Implementations
// live in the sink subpackages.
type Sink interface {
	// Write stores the encoded record committed as the seq-th row of the
	// store. An error aborts the append that produced it.
	Write(storeID string, seq int64, record []byte) error

	// Load returns the encoded records of a store in seq order.
	Load(storeID string) ([][]byte, error)

	Close() error
}

// Restore decodes a store's journal into records suitable for
// Config.Initial.
func Restore(sink Sink, storeID string, schema Schema) ([]Record, error) {
	raw, err := sink.Load(storeID)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(raw))
	for _, data := range raw {
		rec, err := schema.DecodeRecord(data)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
