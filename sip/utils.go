package sip

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

var bytesRdrPool = sync.Pool{
	New: func() any { return bytes.NewReader(nil) },
}

func getBytesRdr(b []byte) *bytes.Reader {
	r := bytesRdrPool.Get().(*bytes.Reader)
	r.Reset(b)
	return r
}

func freeBytesRdr(r *bytes.Reader) {
	r.Reset(nil)
	bytesRdrPool.Put(r)
}

var bufRdrPool = sync.Pool{
	New: func() any {
		return bufio.NewReaderSize(nil, int(MaxMsgSize))
	},
}

func getBufRdr(r io.Reader) *bufio.Reader {
	br := bufRdrPool.Get().(*bufio.Reader)
	br.Reset(r)
	return br
}

func freeBufRdr(r *bufio.Reader) {
	r.Reset(nil)
	bufRdrPool.Put(r)
}
