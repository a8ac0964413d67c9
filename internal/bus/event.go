package bus

import "encoding/json"

// Event is a cross-module notification. The set of events is closed; every
// event type lives in this file.
type Event interface {
	// Type is the wire tag of the event.
	Type() string
	isEvent()
}

// Tab identifies a central screen tab.
type Tab string

const (
	TabPublic      Tab = "public"
	TabPrivate     Tab = "private"
	TabActivity    Tab = "activity"
	TabConnections Tab = "connections"
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TabPublic, TabPrivate, TabActivity, TabConnections}

// LocalizationLoaded signals that translated strings are available.
type LocalizationLoaded struct{}

// TriggerFeedCypherlink asks the app to open a feed.
type TriggerFeedCypherlink struct {
	FeedID string `json:"feedId"`
}

// TriggerMsgCypherlink asks the app to open a message thread.
type TriggerMsgCypherlink struct {
	MsgID string `json:"msgId"`
}

// TriggerHashtagLink asks the app to search a hashtag.
type TriggerHashtagLink struct {
	Hashtag string `json:"hashtag"`
}

// HardwareBackOnCentralScreen is a back press while the central screen is on top.
type HardwareBackOnCentralScreen struct{}

// DrawerToggleOnCentralScreen reports the drawer being opened or closed.
type DrawerToggleOnCentralScreen struct {
	Open bool `json:"open"`
}

// AudioBlobComposed reports a recorded audio blob ready to attach.
type AudioBlobComposed struct {
	BlobID string `json:"blobId"`
}

// Subtypes of CentralScreenUpdate.
const (
	SubtypeChangeTab       = "changeTab"
	SubtypeScrollToTop     = "scrollToTop"
	SubtypePublicUpdates   = "publicUpdates"
	SubtypePrivateUpdates  = "privateUpdates"
	SubtypeActivityUpdates = "activityUpdates"
	SubtypeConnections     = "connections"
)

// CentralScreenUpdate carries central screen changes. Which fields are set
// depends on Subtype: Tab for changeTab and scrollToTop, Counter for the
// *Updates subtypes, Substate for connections.
type CentralScreenUpdate struct {
	Subtype  string `json:"subtype"`
	Tab      Tab    `json:"tab,omitempty"`
	Counter  int    `json:"counter,omitempty"`
	Substate any    `json:"substate,omitempty"`
}

// HasCounter reports whether the subtype carries an unread counter.
func (u CentralScreenUpdate) HasCounter() bool {
	switch u.Subtype {
	case SubtypePublicUpdates, SubtypePrivateUpdates, SubtypeActivityUpdates:
		return true
	}
	return false
}

// MarshalJSON keeps a zero counter on the counter subtypes, where 0 means
// the unread count was cleared.
func (u CentralScreenUpdate) MarshalJSON() ([]byte, error) {
	type plain CentralScreenUpdate
	if !u.HasCounter() {
		return json.Marshal(plain(u))
	}
	return json.Marshal(struct {
		plain
		Counter int `json:"counter"`
	}{plain(u), u.Counter})
}

func (LocalizationLoaded) Type() string          { return "localizationLoaded" }
func (TriggerFeedCypherlink) Type() string       { return "triggerFeedCypherlink" }
func (TriggerMsgCypherlink) Type() string        { return "triggerMsgCypherlink" }
func (TriggerHashtagLink) Type() string          { return "triggerHashtagLink" }
func (HardwareBackOnCentralScreen) Type() string { return "hardwareBackOnCentralScreen" }
func (DrawerToggleOnCentralScreen) Type() string { return "drawerToggleOnCentralScreen" }
func (AudioBlobComposed) Type() string           { return "audioBlobComposed" }
func (CentralScreenUpdate) Type() string         { return "centralScreenUpdate" }

func (LocalizationLoaded) isEvent()          {}
func (TriggerFeedCypherlink) isEvent()       {}
func (TriggerMsgCypherlink) isEvent()        {}
func (TriggerHashtagLink) isEvent()          {}
func (HardwareBackOnCentralScreen) isEvent() {}
func (DrawerToggleOnCentralScreen) isEvent() {}
func (AudioBlobComposed) isEvent()           {}
func (CentralScreenUpdate) isEvent()         {}

// ChangeTab builds a changeTab update.
func ChangeTab(tab Tab) CentralScreenUpdate {
	return CentralScreenUpdate{Subtype: SubtypeChangeTab, Tab: tab}
}

// ScrollToTop builds a scrollToTop update.
func ScrollToTop(tab Tab) CentralScreenUpdate {
	return CentralScreenUpdate{Subtype: SubtypeScrollToTop, Tab: tab}
}
