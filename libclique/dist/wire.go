package dist

import (
	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/gogo/protobuf/proto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// msgKind leads every wire message.  All integers that follow are protobuf varints.
type msgKind uint64

const (
	kindHeader    msgKind = 1 // n, run id
	kindAdjacency msgKind = 2 // n*n row-major 0/1 bytes
	kindResult    msgKind = 3 // rank, clique len, vertex ids
	kindHello     msgKind = 4 // rank, group size
)

type header struct {
	NumVerts int
	RunID    uuid.UUID
}

func newMsg(kind msgKind, sizeHint int) *proto.Buffer {
	buf := proto.NewBuffer(make([]byte, 0, 8+sizeHint))
	buf.EncodeVarint(uint64(kind))
	return buf
}

func openMsg(payload []byte, want msgKind) (*proto.Buffer, error) {
	buf := proto.NewBuffer(payload)
	kind, err := buf.DecodeVarint()
	if err != nil {
		return nil, errors.Wrapf(goclique.ErrBadMessage, "reading message kind: %v", err)
	}
	if msgKind(kind) != want {
		return nil, errors.Wrapf(goclique.ErrBadMessage, "expected message kind %d, got %d", want, kind)
	}
	return buf, nil
}

func decodeInt(buf *proto.Buffer, field string, limit int) (int, error) {
	x, err := buf.DecodeVarint()
	if err != nil {
		return 0, errors.Wrapf(goclique.ErrBadMessage, "reading %s: %v", field, err)
	}
	if x > uint64(limit) {
		return 0, errors.Wrapf(goclique.ErrBadMessage, "%s %d exceeds %d", field, x, limit)
	}
	return int(x), nil
}

// maxWireVerts bounds n so that the n*n adjacency buffer stays addressable.
const maxWireVerts = 1 << 15

func encodeHeader(hdr header) []byte {
	buf := newMsg(kindHeader, 48)
	buf.EncodeVarint(uint64(hdr.NumVerts))
	buf.EncodeStringBytes(hdr.RunID.String())
	return buf.Bytes()
}

func decodeHeader(payload []byte) (hdr header, err error) {
	buf, err := openMsg(payload, kindHeader)
	if err != nil {
		return hdr, err
	}
	if hdr.NumVerts, err = decodeInt(buf, "vertex count", maxWireVerts); err != nil {
		return hdr, err
	}
	runID, err := buf.DecodeStringBytes()
	if err != nil {
		return hdr, errors.Wrapf(goclique.ErrBadMessage, "reading run id: %v", err)
	}
	if hdr.RunID, err = uuid.Parse(runID); err != nil {
		return hdr, errors.Wrapf(goclique.ErrBadMessage, "run id %q: %v", runID, err)
	}
	return hdr, nil
}

func encodeAdjacency(G *graph.Graph) []byte {
	Nv := G.NumVerts()
	buf := newMsg(kindAdjacency, Nv*Nv+4)
	buf.EncodeRawBytes(G.Flatten(make([]byte, 0, Nv*Nv)))
	return buf.Bytes()
}

// decodeAdjacency rebuilds the graph sent by rank 0, checking it against the vertex count from the header.
func decodeAdjacency(payload []byte, numVerts int) (*graph.Graph, error) {
	buf, err := openMsg(payload, kindAdjacency)
	if err != nil {
		return nil, err
	}
	flat, err := buf.DecodeRawBytes(false)
	if err != nil {
		return nil, errors.Wrapf(goclique.ErrBadMessage, "reading adjacency: %v", err)
	}
	return graph.FromFlat(numVerts, flat)
}

func encodeResult(rank int, K goclique.Clique) []byte {
	buf := newMsg(kindResult, 4+4*len(K))
	buf.EncodeVarint(uint64(rank))
	buf.EncodeVarint(uint64(len(K)))
	for _, v := range K {
		buf.EncodeVarint(uint64(v))
	}
	return buf.Bytes()
}

// decodeResult reads a rank's local best.  Ids are range checked against numVerts; adjacency is the caller's job.
func decodeResult(payload []byte, numVerts int) (rank int, K goclique.Clique, err error) {
	buf, err := openMsg(payload, kindResult)
	if err != nil {
		return 0, nil, err
	}
	if rank, err = decodeInt(buf, "rank", maxWireVerts); err != nil {
		return 0, nil, err
	}
	Kn, err := decodeInt(buf, "clique size", numVerts)
	if err != nil {
		return 0, nil, err
	}
	K = make(goclique.Clique, Kn)
	for i := range K {
		v, err := decodeInt(buf, "vertex id", numVerts-1)
		if err != nil {
			return 0, nil, err
		}
		K[i] = goclique.VtxID(v)
	}
	return rank, K, nil
}

func encodeHello(rank, size int) []byte {
	buf := newMsg(kindHello, 8)
	buf.EncodeVarint(uint64(rank))
	buf.EncodeVarint(uint64(size))
	return buf.Bytes()
}

func decodeHello(payload []byte) (rank, size int, err error) {
	buf, err := openMsg(payload, kindHello)
	if err != nil {
		return 0, 0, err
	}
	if rank, err = decodeInt(buf, "rank", maxWireVerts); err != nil {
		return 0, 0, err
	}
	if size, err = decodeInt(buf, "group size", maxWireVerts); err != nil {
		return 0, 0, err
	}
	return rank, size, nil
}
