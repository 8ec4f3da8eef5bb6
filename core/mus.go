package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// ErrNegativeLength is returned when an encoded slice length is negative.
var ErrNegativeLength = errors.New("negative length")

// Binary serializers for the records kept in storage. Each encodes its
// fields in declaration order.
var (
	ChunkMUS       = chunkMUS{}
	TableMUS       = tableMUS{}
	DocumentMUS    = documentMUS{}
	SessionInfoMUS = sessionInfoMUS{}
)

// time.Time as Unix nanoseconds, the zero time as 0.

func marshalTime(t time.Time, bs []byte) int {
	if t.IsZero() {
		return varint.Int64.Marshal(0, bs)
	}
	return varint.Int64.Marshal(t.UnixNano(), bs)
}

func unmarshalTime(bs []byte) (t time.Time, n int, err error) {
	nanos, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || nanos == 0 {
		return time.Time{}, n, err
	}
	return time.Unix(0, nanos).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	if t.IsZero() {
		return varint.Int64.Size(0)
	}
	return varint.Int64.Size(t.UnixNano())
}

func unmarshalLength(bs []byte) (int, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err == nil && length < 0 {
		err = ErrNegativeLength
	}
	return length, n, err
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func unmarshalStrings(bs []byte) (v []string, n int, err error) {
	length, n, err := unmarshalLength(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]string, 0, min(length, len(bs)))
	for range length {
		s, n1, err := ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v = append(v, s)
	}
	return v, n, nil
}

func sizeStrings(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.DocID, bs[n:])
	n += varint.Int.Marshal(v.PageNum, bs[n:])
	n += varint.Int.Marshal(v.ChunkIndex, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.SourceURI, bs[n:])
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.DocID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PageNum, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceURI, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var length int
	length, n1, err = unmarshalLength(bs[n:])
	n += n1
	if err != nil || length == 0 {
		return
	}
	v.Vector = make([]float32, 0, min(length, len(bs)))
	for range length {
		var f float32
		f, n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Vector = append(v.Vector, f)
	}
	return
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.DocID)
	size += varint.Int.Size(v.PageNum)
	size += varint.Int.Size(v.ChunkIndex)
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.SourceURI)
	size += varint.Int.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	return
}

type tableMUS struct{}

func (tableMUS) Marshal(v Table, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.DocID, bs[n:])
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += marshalStrings(v.Columns, bs[n:])
	n += varint.Int.Marshal(len(v.Rows), bs[n:])
	for _, row := range v.Rows {
		n += marshalStrings(row, bs[n:])
	}
	return
}

func (tableMUS) Unmarshal(bs []byte) (v Table, n int, err error) {
	var n1 int
	if v.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.DocID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Index, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Columns, n1, err = unmarshalStrings(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var length int
	length, n1, err = unmarshalLength(bs[n:])
	n += n1
	if err != nil || length == 0 {
		return
	}
	v.Rows = make([][]string, 0, min(length, len(bs)))
	for range length {
		var row []string
		row, n1, err = unmarshalStrings(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Rows = append(v.Rows, row)
	}
	return
}

func (tableMUS) Size(v Table) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.DocID)
	size += varint.Int.Size(v.Index)
	size += sizeStrings(v.Columns)
	size += varint.Int.Size(len(v.Rows))
	for _, row := range v.Rows {
		size += sizeStrings(row)
	}
	return
}

type documentMUS struct{}

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.SourceURI, bs[n:])
	n += varint.Int.Marshal(v.Pages, bs[n:])
	n += varint.Int.Marshal(v.Chunks, bs[n:])
	n += varint.Int.Marshal(v.Tables, bs[n:])
	n += marshalTime(v.IngestedAt, bs[n:])
	return
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.SourceURI, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Pages, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Chunks, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Tables, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IngestedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (documentMUS) Size(v Document) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.SourceURI)
	size += varint.Int.Size(v.Pages)
	size += varint.Int.Size(v.Chunks)
	size += varint.Int.Size(v.Tables)
	size += sizeTime(v.IngestedAt)
	return
}

type sessionInfoMUS struct{}

func (sessionInfoMUS) Marshal(v SessionInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += varint.Int.Marshal(v.Chunks, bs[n:])
	n += varint.Int.Marshal(v.Tables, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (sessionInfoMUS) Unmarshal(bs []byte) (v SessionInfo, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Chunks, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Tables, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (sessionInfoMUS) Size(v SessionInfo) (size int) {
	size = ord.String.Size(v.ID)
	size += varint.Int.Size(v.Chunks)
	size += varint.Int.Size(v.Tables)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	return
}
