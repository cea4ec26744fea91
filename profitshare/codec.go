package profitshare

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bitfsorg/settle-go/account"
)

const (
	// KeySize is the encoded key length: collection(20) + instance(32).
	KeySize = account.Size + 32

	ruleHeaderSize = KeySize + 4      // key + num_entries(4)
	ruleEntrySize  = account.Size + 4 // beneficiary(20) + ratio(4)
)

// EncodeKey encodes a key as collection || big-endian instance. Encoded keys
// sort by collection, then by instance.
func EncodeKey(k Key) []byte {
	buf := make([]byte, KeySize)
	copy(buf[:account.Size], k.Collection[:])
	inst := k.Instance.Bytes32()
	copy(buf[account.Size:], inst[:])
	return buf
}

// DecodeKey decodes a key produced by EncodeKey.
func DecodeKey(data []byte) (Key, error) {
	var k Key
	if len(data) != KeySize {
		return k, fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidRuleData, KeySize, len(data))
	}
	copy(k.Collection[:], data[:account.Size])
	k.Instance.SetBytes32(data[account.Size:])
	return k, nil
}

// SerializeRule encodes a rule to its binary form.
func SerializeRule(r *Rule) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: rule", ErrNilParam)
	}
	if len(r.Entries) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d entries", ErrTooManyEntries, len(r.Entries))
	}
	buf := make([]byte, ruleHeaderSize+ruleEntrySize*len(r.Entries))
	copy(buf, EncodeKey(r.Key))
	offset := KeySize

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(r.Entries)))
	offset += 4

	for _, e := range r.Entries {
		copy(buf[offset:offset+account.Size], e.Beneficiary[:])
		offset += account.Size
		binary.BigEndian.PutUint32(buf[offset:offset+4], e.Ratio)
		offset += 4
	}
	return buf, nil
}

// DeserializeRule decodes a rule produced by SerializeRule.
func DeserializeRule(data []byte) (*Rule, error) {
	if len(data) < ruleHeaderSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidRuleData, len(data))
	}
	key, err := DecodeKey(data[:KeySize])
	if err != nil {
		return nil, err
	}
	offset := KeySize

	n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	if want := ruleHeaderSize + ruleEntrySize*n; len(data) != want {
		return nil, fmt.Errorf("%w: expected %d bytes for %d entries, got %d",
			ErrInvalidRuleData, want, n, len(data))
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: rule has no entries", ErrInvalidRuleData)
	}

	r := &Rule{Key: key, Entries: make([]Entry, n)}
	for i := 0; i < n; i++ {
		copy(r.Entries[i].Beneficiary[:], data[offset:offset+account.Size])
		offset += account.Size
		r.Entries[i].Ratio = binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4
	}
	return r, nil
}
