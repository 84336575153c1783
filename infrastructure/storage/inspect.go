package storage

import (
	"livechat/domain/chat"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const (
	KindMessage = "MESSAGE"
	KindIndex   = "INDEX"
	KindCorrupt = "CORRUPT"
	KindRaw     = "RAW"
)

// Entry is the decoded view of one badger key, for inspection tools.
type Entry struct {
	Key     string
	Kind    string
	Size    int
	Message chat.Message // set for KindMessage
	Target  string       // primary key an index entry points to
	Err     error        // decoding failure of a KindCorrupt entry
}

// ScanEntries walks every key starting with prefix, an empty prefix walks
// the whole database. A value that does not decode is reported, not fatal.
func ScanEntries(db *badger.DB, prefix string, fn func(Entry) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(describe(key, value)); err != nil {
				return err
			}
		}
		return nil
	})
}

func describe(key string, value []byte) Entry {
	entry := Entry{Key: key, Kind: KindRaw, Size: len(value)}
	switch {
	case strings.HasPrefix(key, indexPrefix):
		entry.Kind = KindIndex
		entry.Target = string(value)
	case strings.HasPrefix(key, messagePrefix):
		message, err := unmarshalMessage(value)
		if err != nil {
			entry.Kind = KindCorrupt
			entry.Err = err
			return entry
		}
		entry.Kind = KindMessage
		entry.Message = message
	}
	return entry
}
