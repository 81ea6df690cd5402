package token

import (
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// bucketTokens maps raw token bytes to encoded records.
	bucketTokens = []byte("tokens")

	// bucketUIDs is the secondary index mapping uid to raw token bytes,
	// enforcing one token per owner.
	bucketUIDs = []byte("uids")
)

// epoch is the "never used" last-use timestamp.
var epoch = time.UnixMilli(0).UTC()

// Store is a durable token store backed by a single bbolt file. It is safe
// for concurrent use; bbolt serializes read-write transactions, which makes
// Issue, Register and Consume linearizable per token and per uid.
type Store struct {
	db *bolt.DB
}

// Open opens the token store at path, creating the file and its buckets if
// absent.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTokens); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketUIDs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Issue generates a fresh token for uid and binds the two atomically.
// It fails with *AlreadyIssuedError if the uid already owns a token, and
// with *AlreadyRegisteredError in the practically impossible case that the
// generated token collides with an existing one (the store does not retry
// on collision).
func (s *Store) Issue(uid string) (Token, error) {
	tok, err := New()
	if err != nil {
		return Token{}, err
	}
	if err := s.Register(tok, uid); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Register binds an externally supplied token to uid with the same
// atomicity as Issue. This is the administrative path that bypasses token
// generation.
func (s *Store) Register(tok Token, uid string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		uids := tx.Bucket(bucketUIDs)
		if existing := uids.Get([]byte(uid)); existing != nil {
			prev, err := fromBytes(existing)
			if err != nil {
				return fmt.Errorf("corrupt uid index entry for %q: %w", uid, err)
			}
			return &AlreadyIssuedError{Existing: prev}
		}

		tokens := tx.Bucket(bucketTokens)
		if existing := tokens.Get(tok.Bytes()); existing != nil {
			rec, err := decodeRecord(existing)
			if err != nil {
				return fmt.Errorf("corrupt record for token %s: %w", tok, err)
			}
			return &AlreadyRegisteredError{UID: rec.uid}
		}

		if err := uids.Put([]byte(uid), tok.Bytes()); err != nil {
			return fmt.Errorf("failed to write uid index: %w", err)
		}
		if err := tokens.Put(tok.Bytes(), record{uid: uid, lastUse: epoch}.encode()); err != nil {
			return fmt.Errorf("failed to write token record: %w", err)
		}
		return nil
	})
}

// Consume marks one use of tok, enforcing that at least minInterval has
// elapsed since the previous successful use. It fails with ErrUnknownToken
// for an unregistered token and with *CooldownError while the interval has
// not elapsed; in both cases the record is unchanged.
func (s *Store) Consume(tok Token, minInterval time.Duration) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		tokens := tx.Bucket(bucketTokens)

		raw := tokens.Get(tok.Bytes())
		if raw == nil {
			return ErrUnknownToken
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return fmt.Errorf("corrupt record for token %s: %w", tok, err)
		}

		now := time.Now()
		if elapsed := now.Sub(rec.lastUse); elapsed < minInterval {
			return &CooldownError{Interval: minInterval, Remaining: minInterval - elapsed}
		}

		rec.lastUse = now
		if err := tokens.Put(tok.Bytes(), rec.encode()); err != nil {
			return fmt.Errorf("failed to update token record: %w", err)
		}
		return nil
	})
}

// Entry is one token binding as reported by List.
type Entry struct {
	UID     string
	Token   Token
	LastUse time.Time // epoch means never used
}

// List returns every token binding sorted by uid. It is an administrative
// read-only operation.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).ForEach(func(k, v []byte) error {
			tok, err := fromBytes(k)
			if err != nil {
				return fmt.Errorf("corrupt token key: %w", err)
			}
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("corrupt record for token %s: %w", tok, err)
			}
			entries = append(entries, Entry{UID: rec.uid, Token: tok, LastUse: rec.lastUse})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].UID < entries[j].UID })
	return entries, nil
}
