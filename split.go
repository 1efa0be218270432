package csvchunk

// SplitMessages groups messages into sink calls. No call holds more than
// maxCount messages or, when maxBytes is positive, more than maxBytes of
// total body size. A single message larger than maxBytes is placed in its own
// call (never dropped). Order is preserved.
//
// Values of maxCount less than 1 mean no count limit.
//
// Example:
//
//	// SQS: 10 entries and 256 KiB per SendMessageBatch call
//	calls := csvchunk.SplitMessages(msgs, 10, 256*1024)
func SplitMessages(msgs []Message, maxCount, maxBytes int) [][]Message {
	if len(msgs) == 0 {
		return nil
	}
	if maxCount < 1 {
		maxCount = len(msgs)
	}
	if maxBytes <= 0 {
		return chunk(msgs, maxCount)
	}

	var calls [][]Message
	var current []Message
	currentBytes := 0

	for _, m := range msgs {
		w := len(m.Body)

		// Flush before the item that would break either limit
		if len(current) > 0 && (len(current) == maxCount || currentBytes+w > maxBytes) {
			calls = append(calls, current)
			current = nil
			currentBytes = 0
		}

		current = append(current, m)
		currentBytes += w
	}

	if len(current) > 0 {
		calls = append(calls, current)
	}

	return calls
}

// chunk splits a slice into sub-slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 || size <= 0 {
		return nil
	}

	numChunks := (len(items) + size - 1) / size
	result := make([][]T, 0, numChunks)

	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		result = append(result, items[i:end])
	}

	return result
}
