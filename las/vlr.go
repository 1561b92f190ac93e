package las

import (
	"fmt"

	"github.com/arloliu/pointcloud/endian"
	"github.com/arloliu/pointcloud/errs"
)

const vlrHeaderSize = 54

// VLR is a variable length record. The payload is carried opaque;
// callers that understand a record's user and record id interpret it
// themselves.
type VLR struct {
	Reserved    uint16
	UserID      string // at most 16 bytes
	RecordID    uint16
	Description string // at most 32 bytes
	Data        []byte
}

// Bytes serializes the record, header and payload.
func (v *VLR) Bytes() []byte {
	engine := endian.GetLittleEndianEngine()
	data := make([]byte, vlrHeaderSize+len(v.Data))

	engine.PutUint16(data[0:2], v.Reserved)
	putFixedString(data[2:18], v.UserID)
	engine.PutUint16(data[18:20], v.RecordID)
	engine.PutUint16(data[20:22], uint16(len(v.Data)))
	putFixedString(data[22:54], v.Description)
	copy(data[vlrHeaderSize:], v.Data)
	return data
}

// size returns the serialized length of the record.
func (v *VLR) size() int {
	return vlrHeaderSize + len(v.Data)
}

// parseVLRs decodes count records from data, the region between the
// header and the point data.
func parseVLRs(data []byte, count uint32) ([]VLR, error) {
	vlrs := make([]VLR, 0, count)
	off := 0
	for i := uint32(0); i < count; i++ {
		if len(data)-off < vlrHeaderSize {
			return nil, fmt.Errorf("%w: variable length record %d truncated", errs.ErrInvalidHeader, i)
		}
		engine := endian.GetLittleEndianEngine()
		rec := VLR{
			Reserved:    engine.Uint16(data[off : off+2]),
			UserID:      trimFixedString(data[off+2 : off+18]),
			RecordID:    engine.Uint16(data[off+18 : off+20]),
			Description: trimFixedString(data[off+22 : off+54]),
		}
		length := int(engine.Uint16(data[off+20 : off+22]))
		off += vlrHeaderSize
		if len(data)-off < length {
			return nil, fmt.Errorf("%w: variable length record %d payload truncated", errs.ErrInvalidHeader, i)
		}
		rec.Data = append([]byte(nil), data[off:off+length]...)
		off += length
		vlrs = append(vlrs, rec)
	}
	return vlrs, nil
}
