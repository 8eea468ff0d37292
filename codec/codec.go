package codec

type CodecType byte

const (
	CodecTypeJSON CodecType = 0
)

// Codec turns envelopes into request/response bodies and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType
	ContentType() string
}

func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	// JSON is the only format the endpoint speaks
	return &JSONCodec{}
}
