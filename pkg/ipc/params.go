package ipc

import (
	"fmt"
	"strconv"
)

// Positions on the parameter channel. Position is the only schema, so these
// are part of the protocol contract with the worker.
const (
	paramMountPath = iota
	paramStoragePath
	paramUniqueID
	paramRootParentID
	paramDriveName
	paramCreateStore
	ParamFieldCount
)

// LaunchParams is the payload handed to the drive worker through the
// parameter channel. Immutable once written.
type LaunchParams struct {
	MountPath    string
	StoragePath  string
	UniqueID     string
	RootParentID string
	DriveName    string
	CreateStore  bool
}

func (p LaunchParams) validate() error {
	required := map[string]string{
		"mount path":     p.MountPath,
		"storage path":   p.StoragePath,
		"unique id":      p.UniqueID,
		"root parent id": p.RootParentID,
		"drive name":     p.DriveName,
	}
	for field, v := range required {
		if v == "" {
			return fmt.Errorf("%s: %w", field, ErrEmptyField)
		}
	}
	return nil
}

func (p LaunchParams) fields() []string {
	fields := make([]string, ParamFieldCount)
	fields[paramMountPath] = p.MountPath
	fields[paramStoragePath] = p.StoragePath
	fields[paramUniqueID] = p.UniqueID
	fields[paramRootParentID] = p.RootParentID
	fields[paramDriveName] = p.DriveName
	fields[paramCreateStore] = "0"
	if p.CreateStore {
		fields[paramCreateStore] = "1"
	}
	return fields
}

// WriteParams creates the named channel holding p.
func WriteParams(channelName string, p LaunchParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	return CreateChannel(channelName, p.fields())
}

// ConsumeParams is the worker side: read the channel, decode, and remove it.
func ConsumeParams(channelName string) (LaunchParams, error) {
	fields, err := ConsumeChannel(channelName, ParamFieldCount)
	if err != nil {
		return LaunchParams{}, err
	}
	return decodeParams(channelName, fields)
}

func decodeParams(channelName string, fields []string) (LaunchParams, error) {
	create, err := strconv.Atoi(fields[paramCreateStore])
	if err != nil {
		return LaunchParams{}, fmt.Errorf("channel %s: create-store flag %q: %w",
			channelName, fields[paramCreateStore], ErrMalformedChannel)
	}

	p := LaunchParams{
		MountPath:    fields[paramMountPath],
		StoragePath:  fields[paramStoragePath],
		UniqueID:     fields[paramUniqueID],
		RootParentID: fields[paramRootParentID],
		DriveName:    fields[paramDriveName],
		CreateStore:  create != 0,
	}
	if err := p.validate(); err != nil {
		return LaunchParams{}, fmt.Errorf("channel %s: %w", channelName, err)
	}
	return p, nil
}
