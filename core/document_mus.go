package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
)

var (
	metaMUS      = ord.NewMapSer[string, string](ord.String, ord.String)
	embeddingMUS = ord.NewSliceSer[float32](raw.Float32)
)

// DocumentMUS is the MUS serializer for Document. Fields are written in
// declaration order; Score is written like any other field, callers that
// persist documents zero it first.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	n += metaMUS.Marshal(v.Meta, bs[n:])
	n += embeddingMUS.Marshal(v.Embedding, bs[n:])
	return n + raw.Float32.Marshal(v.Score, bs[n:])
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Meta, n1, err = metaMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embedding, n1, err = embeddingMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Score, n1, err = raw.Float32.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Content)
	size += metaMUS.Size(v.Meta)
	size += embeddingMUS.Size(v.Embedding)
	return size + raw.Float32.Size(v.Score)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = metaMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = embeddingMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.Float32.Skip(bs[n:])
	n += n1
	return
}
