package ui

import (
	"sync"
)

// HiddenField is a hidden input appended to the host checkout form.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ModelState is a copy of everything rendered, as served to remote front ends.
type ModelState struct {
	WidgetCreated    bool                      `json:"widget_created"`
	WidgetVisible    bool                      `json:"widget_visible"`
	Warning          string                    `json:"warning,omitempty"`
	PhoneHelp        string                    `json:"phone_help"`
	ClearedInputs    []InputID                 `json:"cleared_inputs,omitempty"`
	Controls         map[ControlID]Control     `json:"controls"`
	Messages         map[MessageTarget]Message `json:"messages"`
	Badges           map[BadgeID]BadgeStatus   `json:"badges"`
	QRModal          *QRModal                  `json:"qr_modal,omitempty"`
	SuccessModal     bool                      `json:"success_modal"`
	SuccessCountdown int                       `json:"success_countdown,omitempty"`
	Alerts           []string                  `json:"alerts,omitempty"`
	Popup            *PopupOptions             `json:"popup,omitempty"`
	HiddenFields     []HiddenField             `json:"hidden_fields"`
	Checked          map[string]bool           `json:"checked"`
}

// Model is an in-memory View, HostForm and PaymentPopup. Remote front ends poll its
// state and mirror it; tests assert on it directly.
type Model struct {
	mu sync.RWMutex
	st ModelState
}

func NewModel() *Model {
	return &Model{st: ModelState{
		Controls: make(map[ControlID]Control),
		Messages: make(map[MessageTarget]Message),
		Badges: map[BadgeID]BadgeStatus{
			BadgeOTP:   BadgePending,
			BadgeToken: BadgePending,
		},
		Checked: make(map[string]bool),
	}}
}

func (m *Model) update(fn func(st *ModelState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.st)
}

// State returns a deep copy.
func (m *Model) State() ModelState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.st
	st.ClearedInputs = append([]InputID(nil), m.st.ClearedInputs...)
	st.Alerts = append([]string(nil), m.st.Alerts...)
	st.HiddenFields = append([]HiddenField(nil), m.st.HiddenFields...)
	st.Controls = make(map[ControlID]Control, len(m.st.Controls))
	for k, v := range m.st.Controls {
		st.Controls[k] = v
	}
	st.Messages = make(map[MessageTarget]Message, len(m.st.Messages))
	for k, v := range m.st.Messages {
		st.Messages[k] = v
	}
	st.Badges = make(map[BadgeID]BadgeStatus, len(m.st.Badges))
	for k, v := range m.st.Badges {
		st.Badges[k] = v
	}
	st.Checked = make(map[string]bool, len(m.st.Checked))
	for k, v := range m.st.Checked {
		st.Checked[k] = v
	}
	if m.st.QRModal != nil {
		qr := *m.st.QRModal
		st.QRModal = &qr
	}
	if m.st.Popup != nil {
		p := *m.st.Popup
		st.Popup = &p
	}
	return st
}

// Control returns the rendered state of one control.
func (m *Model) Control(id ControlID) Control {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Controls[id]
}

// Message returns the visible message for target, if any.
func (m *Model) Message(target MessageTarget) (Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.st.Messages[target]
	return msg, ok
}

// ShowWidget clones the template on first use and only reveals it afterwards.
func (m *Model) ShowWidget() {
	m.update(func(st *ModelState) {
		st.WidgetCreated = true
		st.WidgetVisible = true
	})
}

func (m *Model) HideWidget() {
	m.update(func(st *ModelState) { st.WidgetVisible = false })
}

func (m *Model) ShowWarning(text string) {
	m.update(func(st *ModelState) { st.Warning = text })
}

func (m *Model) HideWarning() {
	m.update(func(st *ModelState) { st.Warning = "" })
}

func (m *Model) SetPhoneHelp(text string) {
	m.update(func(st *ModelState) { st.PhoneHelp = text })
}

func (m *Model) ClearInput(id InputID) {
	m.update(func(st *ModelState) { st.ClearedInputs = append(st.ClearedInputs, id) })
}

func (m *Model) SetControl(id ControlID, c Control) {
	m.update(func(st *ModelState) { st.Controls[id] = c })
}

func (m *Model) ShowMessage(target MessageTarget, msg Message) {
	m.update(func(st *ModelState) { st.Messages[target] = msg })
}

func (m *Model) HideMessage(target MessageTarget) {
	m.update(func(st *ModelState) { delete(st.Messages, target) })
}

func (m *Model) SetBadge(id BadgeID, status BadgeStatus) {
	m.update(func(st *ModelState) { st.Badges[id] = status })
}

func (m *Model) ShowQRModal(modal QRModal) {
	m.update(func(st *ModelState) { st.QRModal = &modal })
}

func (m *Model) UpdateQRTimer(text string) {
	m.update(func(st *ModelState) {
		if st.QRModal != nil {
			st.QRModal.Timer = text
		}
	})
}

func (m *Model) CloseQRModal() {
	m.update(func(st *ModelState) { st.QRModal = nil })
}

func (m *Model) ShowSuccessModal(secondsLeft int) {
	m.update(func(st *ModelState) {
		st.SuccessModal = true
		st.SuccessCountdown = secondsLeft
	})
}

func (m *Model) UpdateSuccessCountdown(secondsLeft int) {
	m.update(func(st *ModelState) { st.SuccessCountdown = secondsLeft })
}

func (m *Model) CloseSuccessModal() {
	m.update(func(st *ModelState) {
		st.SuccessModal = false
		st.SuccessCountdown = 0
	})
}

func (m *Model) Alert(text string) {
	m.update(func(st *ModelState) { st.Alerts = append(st.Alerts, text) })
}

// Open records the popup request; the remote front end opens the gateway SDK with it.
func (m *Model) Open(opts PopupOptions) error {
	m.update(func(st *ModelState) { st.Popup = &opts })
	return nil
}

// Close forgets a pending popup request once its outcome is known.
func (m *Model) Close() {
	m.update(func(st *ModelState) { st.Popup = nil })
}

func (m *Model) HasField(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.st.HiddenFields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (m *Model) AppendHidden(name, value string) {
	m.update(func(st *ModelState) {
		st.HiddenFields = append(st.HiddenFields, HiddenField{Name: name, Value: value})
	})
}

func (m *Model) SetChecked(name string, checked bool) {
	m.update(func(st *ModelState) { st.Checked[name] = checked })
}

// FieldCount counts hidden fields called name.
func (m *Model) FieldCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, f := range m.st.HiddenFields {
		if f.Name == name {
			n++
		}
	}
	return n
}
