// Package file provides a reference implementation of configstore.Store
// backed by a single YAML document on disk. The original daemon's on-disk
// format is a Non-goal; this implementation exists to make the core
// runnable end-to-end and is grounded in the teacher's layered-config
// merge/persist style (internal/config.LayeredLoader), using
// gopkg.in/yaml.v3 rather than hand-rolled TOML parsing.
package file

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/coolercontrol-go/coolercontrold/internal/ccerrors"
	"github.com/coolercontrol-go/coolercontrold/internal/configstore"
	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/function"
	"github.com/coolercontrol-go/coolercontrold/internal/profile"
)

// onDisk is the serializable shape of everything the store persists.
type onDisk struct {
	General        configstore.GeneralSettings                 `yaml:"general_settings"`
	Profiles       []profile.Profile                           `yaml:"profiles"`
	Functions      []function.Function                         `yaml:"functions"`
	DeviceSettings map[device.UID]map[string]configstore.Setting `yaml:"device_settings"`
	LegacyIDs      map[device.UID]bool                          `yaml:"legacy690_ids"`

	Modes     []configstore.Mode `yaml:"modes"`
	ModeOrder []device.UID       `yaml:"mode_order"`

	Alerts   []configstore.Alert         `yaml:"alerts"`
	AlertLog []configstore.AlertLogEntry `yaml:"alert_log"`
}

const alertLogCapacity = 20

// Store is a YAML-file-backed configstore.Store. The config file and the
// modes/alerts files described in §6 are modeled here as one document for
// simplicity; a production split would write three files, each still
// rewritten in full per mutation.
type Store struct {
	mu       sync.Mutex
	path     string
	doc      onDisk
}

// New creates a Store reading from and writing to path. Load must be called
// before use.
func New(path string) *Store {
	return &Store{path: path, doc: onDisk{
		General:        configstore.DefaultGeneralSettings(),
		DeviceSettings: map[device.UID]map[string]configstore.Setting{},
		LegacyIDs:      map[device.UID]bool{},
	}}
}

// Load reads the document from disk and validates it: every Profile must
// pass Profile.Validate, and every device Setting with a speed_profile must
// carry a temp_source; other documents are not checked. A
// missing file is not an error — it seeds defaults, matching the teacher's
// layered-loader "file layer is optional" convention.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ccerrors.Wrap(ccerrors.External, "read config file", err)
	}

	var doc onDisk
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ccerrors.Wrap(ccerrors.Internal, "parse config file", err)
	}

	if err := validate(doc); err != nil {
		return ccerrors.Wrap(ccerrors.Internal, "config file failed validation", err)
	}

	if doc.DeviceSettings == nil {
		doc.DeviceSettings = map[device.UID]map[string]configstore.Setting{}
	}
	if doc.LegacyIDs == nil {
		doc.LegacyIDs = map[device.UID]bool{}
	}
	doc.General = doc.General.Clamp()

	s.doc = doc
	return nil
}

func validate(doc onDisk) error {
	for _, p := range doc.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", p.UID, err)
		}
	}
	for deviceUID, channels := range doc.DeviceSettings {
		for ch, s := range channels {
			if len(s.SpeedProfile) > 0 && s.TempSource == nil {
				return fmt.Errorf("device %s channel %s: speed_profile without temp_source", deviceUID, ch)
			}
		}
	}
	return nil
}

// save rewrites the whole document. Must be called with s.mu held.
func (s *Store) save() error {
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return ccerrors.Wrap(ccerrors.Internal, "marshal config document", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ccerrors.Wrap(ccerrors.External, "write config file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return ccerrors.Wrap(ccerrors.External, "replace config file", err)
	}
	return nil
}

func (s *Store) GetGeneralSettings() configstore.GeneralSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.General
}

func (s *Store) GetDeviceSettings(uid device.UID) map[string]configstore.Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]configstore.Setting{}
	for k, v := range s.doc.DeviceSettings[uid] {
		out[k] = v
	}
	return out
}

func (s *Store) GetAllDeviceSettings() map[device.UID]map[string]configstore.Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[device.UID]map[string]configstore.Setting{}
	for dev, channels := range s.doc.DeviceSettings {
		chCopy := map[string]configstore.Setting{}
		for k, v := range channels {
			chCopy[k] = v
		}
		out[dev] = chCopy
	}
	return out
}

func (s *Store) GetProfiles() []profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]profile.Profile, len(s.doc.Profiles))
	copy(out, s.doc.Profiles)
	return out
}

func (s *Store) GetFunctions() []function.Function {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]function.Function, len(s.doc.Functions))
	copy(out, s.doc.Functions)
	return out
}

func (s *Store) LegacyIDs() map[device.UID]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[device.UID]bool{}
	for k, v := range s.doc.LegacyIDs {
		out[k] = v
	}
	return out
}

func (s *Store) SetProfile(p profile.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Profiles = append(s.doc.Profiles, p)
	return s.save()
}

func (s *Store) UpdateProfile(p profile.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.Profiles {
		if existing.UID == p.UID {
			s.doc.Profiles[i] = p
			return s.save()
		}
	}
	return ccerrors.New(ccerrors.NotFound, "profile not found: "+string(p.UID))
}

func (s *Store) DeleteProfile(uid device.UID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.doc.Profiles {
		if p.UID == uid {
			s.doc.Profiles = append(s.doc.Profiles[:i], s.doc.Profiles[i+1:]...)
			return s.save()
		}
	}
	return ccerrors.New(ccerrors.NotFound, "profile not found: "+string(uid))
}

func (s *Store) SetProfileOrder(uids []device.UID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ordered := make([]profile.Profile, 0, len(uids))
	byUID := map[device.UID]profile.Profile{}
	for _, p := range s.doc.Profiles {
		byUID[p.UID] = p
	}
	for _, uid := range uids {
		p, ok := byUID[uid]
		if !ok {
			return ccerrors.New(ccerrors.UserError, "reorder references unknown or repeated profile: "+string(uid))
		}
		delete(byUID, uid)
		ordered = append(ordered, p)
	}
	if len(ordered) != len(s.doc.Profiles) {
		return ccerrors.New(ccerrors.UserError, "reorder must contain every profile uid")
	}
	s.doc.Profiles = ordered
	return s.save()
}

func (s *Store) SetFunction(f function.Function) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Functions = append(s.doc.Functions, f)
	return s.save()
}

func (s *Store) UpdateFunction(f function.Function) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.Functions {
		if existing.UID == f.UID {
			s.doc.Functions[i] = f
			return s.save()
		}
	}
	return ccerrors.New(ccerrors.NotFound, "function not found: "+string(f.UID))
}

func (s *Store) DeleteFunction(uid device.UID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.doc.Functions {
		if f.UID == uid {
			s.doc.Functions = append(s.doc.Functions[:i], s.doc.Functions[i+1:]...)
			return s.save()
		}
	}
	return ccerrors.New(ccerrors.NotFound, "function not found: "+string(uid))
}

func (s *Store) SetFunctionOrder(uids []device.UID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ordered := make([]function.Function, 0, len(uids))
	byUID := map[device.UID]function.Function{}
	for _, f := range s.doc.Functions {
		byUID[f.UID] = f
	}
	for _, uid := range uids {
		f, ok := byUID[uid]
		if !ok {
			return ccerrors.New(ccerrors.UserError, "reorder references unknown or repeated function: "+string(uid))
		}
		delete(byUID, uid)
		ordered = append(ordered, f)
	}
	if len(ordered) != len(s.doc.Functions) {
		return ccerrors.New(ccerrors.UserError, "reorder must contain every function uid")
	}
	s.doc.Functions = ordered
	return s.save()
}

func (s *Store) SetDeviceSetting(deviceUID device.UID, setting configstore.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.DeviceSettings[deviceUID] == nil {
		s.doc.DeviceSettings[deviceUID] = map[string]configstore.Setting{}
	}
	if setting.ResetToDefault {
		delete(s.doc.DeviceSettings[deviceUID], setting.ChannelName)
	} else {
		s.doc.DeviceSettings[deviceUID][setting.ChannelName] = setting
	}
	return s.save()
}

func (s *Store) DeleteDeviceSetting(deviceUID device.UID, channelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doc.DeviceSettings[deviceUID], channelName)
	return s.save()
}

func (s *Store) SetGeneralSettings(g configstore.GeneralSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.General = g.Clamp()
	return s.save()
}

func (s *Store) GetModes() ([]configstore.Mode, []device.UID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	modes := make([]configstore.Mode, len(s.doc.Modes))
	copy(modes, s.doc.Modes)
	order := make([]device.UID, len(s.doc.ModeOrder))
	copy(order, s.doc.ModeOrder)
	return modes, order
}

func (s *Store) SetMode(m configstore.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.Modes {
		if existing.UID == m.UID {
			s.doc.Modes[i] = m
			return s.save()
		}
	}
	s.doc.Modes = append(s.doc.Modes, m)
	s.doc.ModeOrder = append(s.doc.ModeOrder, m.UID)
	return s.save()
}

func (s *Store) DeleteMode(uid device.UID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.doc.Modes {
		if m.UID == uid {
			s.doc.Modes = append(s.doc.Modes[:i], s.doc.Modes[i+1:]...)
			break
		}
	}
	for i, u := range s.doc.ModeOrder {
		if u == uid {
			s.doc.ModeOrder = append(s.doc.ModeOrder[:i], s.doc.ModeOrder[i+1:]...)
			break
		}
	}
	return s.save()
}

func (s *Store) SetModeOrder(uids []device.UID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(uids) != len(s.doc.ModeOrder) {
		return ccerrors.New(ccerrors.UserError, "reorder must contain every mode uid")
	}
	seen := map[device.UID]bool{}
	for _, u := range s.doc.ModeOrder {
		seen[u] = true
	}
	for _, u := range uids {
		if !seen[u] {
			return ccerrors.New(ccerrors.UserError, "reorder references unknown or repeated mode: "+string(u))
		}
		delete(seen, u)
	}
	s.doc.ModeOrder = append([]device.UID{}, uids...)
	return s.save()
}

func (s *Store) GetAlerts() []configstore.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]configstore.Alert, len(s.doc.Alerts))
	copy(out, s.doc.Alerts)
	return out
}

func (s *Store) SetAlert(a configstore.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.Alerts {
		if existing.UID == a.UID {
			s.doc.Alerts[i] = a
			return s.save()
		}
	}
	s.doc.Alerts = append(s.doc.Alerts, a)
	return s.save()
}

func (s *Store) DeleteAlert(uid device.UID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.doc.Alerts {
		if a.UID == uid {
			s.doc.Alerts = append(s.doc.Alerts[:i], s.doc.Alerts[i+1:]...)
			return s.save()
		}
	}
	return ccerrors.New(ccerrors.NotFound, "alert not found: "+string(uid))
}

func (s *Store) AppendAlertLog(entry configstore.AlertLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.AlertLog = append(s.doc.AlertLog, entry)
	if len(s.doc.AlertLog) > alertLogCapacity {
		s.doc.AlertLog = s.doc.AlertLog[len(s.doc.AlertLog)-alertLogCapacity:]
	}
	return s.save()
}

func (s *Store) GetAlertLog() []configstore.AlertLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]configstore.AlertLogEntry, len(s.doc.AlertLog))
	copy(out, s.doc.AlertLog)
	return out
}

var _ configstore.Store = (*Store)(nil)
