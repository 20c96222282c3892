package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const entryFormatVersionV1 = 1

// Encode serializes an Entry into the compact versioned binary form stored
// in Redis.
func Encode(e *Entry) ([]byte, error) {
	if e == nil {
		return nil, errors.New("nil entry")
	}
	if !e.Reason.Valid() {
		return nil, errors.New("invalid reason")
	}

	var buf bytes.Buffer

	buf.WriteByte(entryFormatVersionV1)
	buf.WriteByte(byte(e.Reason))

	if len(e.EntryID) > 255 {
		return nil, errors.New("entry id too long")
	}
	buf.WriteByte(byte(len(e.EntryID)))
	buf.WriteString(e.EntryID)

	if len(e.SubjectID) > 255 {
		return nil, errors.New("subject id too long")
	}
	buf.WriteByte(byte(len(e.SubjectID)))
	buf.WriteString(e.SubjectID)

	buf.Write(e.CredentialHash[:])

	if err := binary.Write(&buf, binary.BigEndian, e.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, e.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses the binary form produced by Encode.
func Decode(data []byte) (*Entry, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != entryFormatVersionV1 {
		return nil, errors.New("invalid entry version")
	}

	reason, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	e := &Entry{Reason: Reason(reason)}
	if !e.Reason.Valid() {
		return nil, errors.New("invalid entry reason")
	}

	idLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	entryID := make([]byte, idLen)
	if _, err := io.ReadFull(reader, entryID); err != nil {
		return nil, err
	}
	e.EntryID = string(entryID)

	subjectLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	subjectID := make([]byte, subjectLen)
	if _, err := io.ReadFull(reader, subjectID); err != nil {
		return nil, err
	}
	e.SubjectID = string(subjectID)

	if _, err := io.ReadFull(reader, e.CredentialHash[:]); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &e.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &e.ExpiresAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing entry bytes")
	}

	return e, nil
}
