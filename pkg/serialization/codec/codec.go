// Package codec abstracts the serialization of persisted records. The
// account store is written against the Codec interface so the encoding of
// on-chain state is swappable without touching accounting logic.
package codec

type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}
