package ledger

import "testing"

// FuzzDecode throws arbitrary bytes at the entry decoder. Decode must never
// panic and every successfully decoded entry must carry a valid reason.
func FuzzDecode(f *testing.F) {
	valid, err := Encode(&Entry{
		EntryID:        "fuzz-seed",
		CredentialHash: CredentialHash("fuzz-credential"),
		SubjectID:      "subject-fuzz",
		Reason:         ReasonAdminRevoke,
		CreatedAt:      1700000000,
		ExpiresAt:      1700003600,
	})
	if err != nil {
		f.Fatalf("Encode failed: %v", err)
	}

	f.Add(valid)
	f.Add([]byte{})
	f.Add([]byte{entryFormatVersionV1})
	f.Add([]byte{entryFormatVersionV1, byte(ReasonLogout), 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		entry, err := Decode(data)
		if err != nil {
			return
		}
		if !entry.Reason.Valid() {
			t.Fatalf("decoded entry carries invalid reason %d", entry.Reason)
		}
	})
}
