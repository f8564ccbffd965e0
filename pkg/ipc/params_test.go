package ipc

import (
	"errors"
	"testing"
)

func TestParamsRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		params LaunchParams
	}{
		{
			name: "create store",
			params: LaunchParams{
				MountPath:    "/m",
				StoragePath:  "/s",
				UniqueID:     "abc",
				RootParentID: "root1",
				DriveName:    "drive1",
				CreateStore:  true,
			},
		},
		{
			name: "existing store",
			params: LaunchParams{
				MountPath:    "/mnt/drive",
				StoragePath:  "/var/lib/driveio/store",
				UniqueID:     "ZmZmZmZmZmZmZmZmZmZmZg",
				RootParentID: "cm9vdHJvb3Ryb290cm9vdA",
				DriveName:    "My Drive",
				CreateStore:  false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := testName(t)
			if err := WriteParams(name, tt.params); err != nil {
				t.Fatalf("write params: %v", err)
			}

			got, err := ConsumeParams(name)
			if err != nil {
				t.Fatalf("consume params: %v", err)
			}
			if got != tt.params {
				t.Fatalf("round trip: got %+v, want %+v", got, tt.params)
			}

			// consume is read-and-remove
			if _, err := ReadChannel(name, ParamFieldCount); !errors.Is(err, ErrSegmentMissing) {
				t.Fatalf("channel still present after consume: %v", err)
			}
		})
	}
}

func TestWriteParamsRejectsEmptyFields(t *testing.T) {
	valid := LaunchParams{
		MountPath:    "/m",
		StoragePath:  "/s",
		UniqueID:     "abc",
		RootParentID: "root1",
		DriveName:    "drive1",
	}

	mutations := map[string]func(*LaunchParams){
		"mount path":     func(p *LaunchParams) { p.MountPath = "" },
		"storage path":   func(p *LaunchParams) { p.StoragePath = "" },
		"unique id":      func(p *LaunchParams) { p.UniqueID = "" },
		"root parent id": func(p *LaunchParams) { p.RootParentID = "" },
		"drive name":     func(p *LaunchParams) { p.DriveName = "" },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			p := valid
			mutate(&p)
			err := WriteParams(testName(t), p)
			if !errors.Is(err, ErrEmptyField) {
				t.Fatalf("got %v, want ErrEmptyField", err)
			}
		})
	}
}

func TestConsumeParamsBadFlag(t *testing.T) {
	name := testName(t)
	fields := []string{"/m", "/s", "abc", "root1", "drive1", "yes"}
	if err := CreateChannel(name, fields); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	defer RemoveChannel(name)

	_, err := ConsumeParams(name)
	if !errors.Is(err, ErrMalformedChannel) {
		t.Fatalf("got %v, want ErrMalformedChannel", err)
	}
}
