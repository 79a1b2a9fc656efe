package configstore

import (
	"github.com/coolercontrol-go/coolercontrold/internal/device"
	"github.com/coolercontrol-go/coolercontrold/internal/function"
	"github.com/coolercontrol-go/coolercontrold/internal/profile"
)

// Store is the contract the core relies on from the persisted-configuration
// collaborator (§4.6, §6). Implementations must make every mutation
// all-or-nothing and the store must be re-readable after a successful save.
type Store interface {
	// Load reads the on-disk documents. Must reject content that fails the
	// §3 invariants with a fatal startup error.
	Load() error

	// Queries.
	GetGeneralSettings() GeneralSettings
	GetDeviceSettings(uid device.UID) map[string]Setting
	GetAllDeviceSettings() map[device.UID]map[string]Setting
	GetProfiles() []profile.Profile
	GetFunctions() []function.Function
	LegacyIDs() map[device.UID]bool

	// Profile/Function mutations.
	SetProfile(p profile.Profile) error
	UpdateProfile(p profile.Profile) error
	DeleteProfile(uid device.UID) error
	SetProfileOrder(uids []device.UID) error

	SetFunction(f function.Function) error
	UpdateFunction(f function.Function) error
	DeleteFunction(uid device.UID) error
	SetFunctionOrder(uids []device.UID) error

	// Per-device setting mutations.
	SetDeviceSetting(deviceUID device.UID, s Setting) error
	DeleteDeviceSetting(deviceUID device.UID, channelName string) error

	SetGeneralSettings(g GeneralSettings) error

	// Modes.
	GetModes() ([]Mode, []device.UID) // modes by uid, and the explicit order
	SetMode(m Mode) error
	DeleteMode(uid device.UID) error
	SetModeOrder(uids []device.UID) error

	// Alerts.
	GetAlerts() []Alert
	SetAlert(a Alert) error
	DeleteAlert(uid device.UID) error
	AppendAlertLog(entry AlertLogEntry) error
	GetAlertLog() []AlertLogEntry
}
