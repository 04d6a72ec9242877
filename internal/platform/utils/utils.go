package utils

import (
	. "BlockBench/internal/domain"
	"encoding/binary"
	"errors"
	"io"
)

// recordFlagPartial marks a record whose payload never fully arrived.
const recordFlagPartial byte = 1

// AppendBlockRecord writes one record in the little-endian layout used by the record log:
// id, start, end, bct, size, received (u64), priority, deadline (i32), flags (u8).
func AppendBlockRecord(f io.Writer, rec BlockRecord) error {
	fields := []uint64{rec.ID, rec.StartTimestamp, rec.EndTimestamp, rec.BCT, rec.BlockSize, rec.Received}
	if err := binary.Write(f, binary.LittleEndian, fields); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, []int32{rec.Priority, rec.Deadline}); err != nil {
		return err
	}

	var flags byte = 0
	if rec.Partial {
		flags |= recordFlagPartial
	}
	return binary.Write(f, binary.LittleEndian, flags)
}

// ReadOneRecord reads a single record from r. A clean end of input is io.EOF; a record cut
// in the middle is io.ErrUnexpectedEOF.
func ReadOneRecord(r io.Reader) (BlockRecord, error) {
	var rec BlockRecord

	fields := make([]uint64, 6)
	if err := binary.Read(r, binary.LittleEndian, fields); err != nil {
		return rec, err
	}

	signed := make([]int32, 2)
	if err := binary.Read(r, binary.LittleEndian, signed); err != nil {
		return rec, unexpected(err)
	}

	var flags byte
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return rec, unexpected(err)
	}

	rec = BlockRecord{
		ID:             fields[0],
		StartTimestamp: fields[1],
		EndTimestamp:   fields[2],
		BCT:            fields[3],
		BlockSize:      fields[4],
		Received:       fields[5],
		Priority:       signed[0],
		Deadline:       signed[1],
		Partial:        flags&recordFlagPartial != 0,
	}
	return rec, nil
}

// ReadAllRecords reads records until end of input.
func ReadAllRecords(f io.Reader) ([]BlockRecord, error) {
	var records []BlockRecord
	for {
		rec, err := ReadOneRecord(f)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
