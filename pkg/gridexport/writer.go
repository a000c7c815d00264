package gridexport

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Writer serializes a rendered buffer into one output format. Implementations
// register themselves under a short id which profiles reference through
// Profile.Writer.
type Writer interface {
	// Name returns the registry id of the writer.
	Name() string
	// Write serializes buf according to the resolved profile.
	Write(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error
}

var (
	writersMu sync.RWMutex
	writers   = make(map[string]Writer)
)

// RegisterWriter adds a writer to the registry. Registering a duplicate id
// is an error so a typo in a custom writer cannot silently shadow a
// built-in one.
func RegisterWriter(w Writer) error {
	writersMu.Lock()
	defer writersMu.Unlock()
	name := w.Name()
	if name == "" {
		return fmt.Errorf("writer with empty name: %w", ErrInvalidProfile)
	}
	if _, dup := writers[name]; dup {
		return fmt.Errorf("writer %q already registered: %w", name, ErrInvalidProfile)
	}
	writers[name] = w
	return nil
}

func mustRegister(w Writer) {
	if err := RegisterWriter(w); err != nil {
		panic(err)
	}
}

func lookupWriter(name string) (Writer, error) {
	writersMu.RLock()
	defer writersMu.RUnlock()
	w, ok := writers[name]
	if !ok {
		return nil, fmt.Errorf("writer %q: %w", name, ErrUnknownWriter)
	}
	return w, nil
}

// Writers lists the registered writer ids in sorted order.
func Writers() []string {
	writersMu.RLock()
	defer writersMu.RUnlock()
	names := make([]string, 0, len(writers))
	for name := range writers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteBuffer serializes buf with the writer named by the profile.
func WriteBuffer(ctx context.Context, buf *Buffer, profile Profile, w io.Writer) error {
	wr, err := lookupWriter(profile.Writer)
	if err != nil {
		return err
	}
	return wr.Write(ctx, buf, profile, w)
}
