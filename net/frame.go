// Package net implements the framed, authenticated, encrypted socket
// transport that kgr/net multiplexes logical pipes over.
package net

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/cmn/config"
)

// FrameType distinguishes a data frame from a mid-session key-rotation
// control frame.
type FrameType uint8

const (
	FrameData FrameType = iota
	FrameKeyChange
)

// minHeaderLen is the 5-byte zero-length-payload header: type + u32 length.
const minHeaderLen = 5

// Frame is one unit of the wire protocol:
//
//	Empty:     [type:1, 0,0,0,0]
//	Non-empty: [type:1, len:u32-le, crc32:u32-le, iv[ivSize], ciphertext[...]]
//
// CRC32 (IEEE, the polynomial the protocol mandates -- not something a
// third-party hashing library changes) is computed over the cleartext
// payload before padding.
type Frame struct {
	Type     FrameType
	Payload  []byte
	checksum uint32
}

// Encode encrypts the frame for the wire using cipher and random.
func (f Frame) Encode(cipher Cipher, random Random) ([]byte, error) {
	if len(f.Payload) == 0 {
		return []byte{byte(f.Type), 0, 0, 0, 0}, nil
	}
	if max := config.GCO.Get().MaxFrame; len(f.Payload) > max {
		return nil, cmn.Wrapf(cmn.ErrInvalidFrame, "net: payload %d exceeds frame limit %d", len(f.Payload), max)
	}
	checksum := crc32.ChecksumIEEE(f.Payload)
	padded := padToBlock(f.Payload, cipher.BlockSize())
	iv, err := random.Bytes(cipher.IVSize())
	if err != nil {
		return nil, err
	}
	ciphertext, err := cipher.Encrypt(padded, iv)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 9+len(iv)+len(ciphertext))
	out = append(out, byte(f.Type))
	out = appendU32LE(out, uint32(len(f.Payload)))
	out = appendU32LE(out, checksum)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecodeFrame consumes one frame from the front of buf. It returns the
// number of bytes consumed; consumed == 0 means buf doesn't yet hold a
// complete frame and the caller should wait for more data.
func DecodeFrame(buf []byte, cipher Cipher) (Frame, int, error) {
	if len(buf) < minHeaderLen {
		return Frame{}, 0, nil
	}
	if buf[0] > byte(FrameKeyChange) {
		return Frame{}, 0, cmn.Wrap(cmn.ErrInvalidFrame, "net: unknown frame type")
	}
	typ := FrameType(buf[0])
	length := binary.LittleEndian.Uint32(buf[1:5])
	if length == 0 {
		return Frame{Type: typ}, minHeaderLen, nil
	}
	if max := config.GCO.Get().MaxFrame; int64(length) > int64(max) {
		return Frame{}, 0, cmn.Wrapf(cmn.ErrInvalidFrame, "net: declared payload %d exceeds frame limit %d", length, max)
	}

	const encryptedHeaderExtra = 9 // type(1) + len(4) + crc32(4), IV follows
	headerSize := encryptedHeaderExtra + cipher.IVSize()
	paddedLen := paddedLength(int(length), cipher.BlockSize())
	total := headerSize + paddedLen
	if len(buf) < total {
		return Frame{}, 0, nil
	}

	crc := binary.LittleEndian.Uint32(buf[5:9])
	iv := buf[9:headerSize]
	ciphertext := buf[headerSize:total]
	raw, err := cipher.Decrypt(ciphertext, iv)
	if err != nil {
		return Frame{}, 0, cmn.Wrap(err, "net: frame decrypt")
	}
	if uint32(len(raw)) < length {
		return Frame{}, 0, cmn.Wrap(cmn.ErrInvalidFrame, "net: decrypted payload shorter than header length")
	}
	payload := raw[:length]
	if crc32.ChecksumIEEE(payload) != crc {
		return Frame{}, 0, cmn.Wrap(cmn.ErrInvalidFrame, "net: CRC32 mismatch")
	}
	for _, b := range raw[length:] {
		if b != 0 {
			return Frame{}, 0, cmn.Wrap(cmn.ErrInvalidFrame, "net: non-zero frame padding")
		}
	}
	return Frame{Type: typ, Payload: payload, checksum: crc}, total, nil
}

func paddedLength(n, blockSize int) int {
	if blockSize <= 0 || n%blockSize == 0 {
		return n
	}
	return (n/blockSize + 1) * blockSize
}

func padToBlock(data []byte, blockSize int) []byte {
	total := paddedLength(len(data), blockSize)
	if total == len(data) {
		return data
	}
	padded := make([]byte, total)
	copy(padded, data)
	return padded
}

func appendU32LE(out []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(out, b[:]...)
}
