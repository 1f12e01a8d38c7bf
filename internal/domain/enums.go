package domain

// Wire layouts for the date and time columns of prospects and activities.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ============================================================
// Roles
// ============================================================

// Role is the organisational role of a user profile.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleTeamLeader   Role = "team_leader"
	RoleSalesAdvisor Role = "sales_advisor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTeamLeader, RoleSalesAdvisor:
		return true
	}
	return false
}

// ============================================================
// Temperature (qualification semaphore)
// ============================================================

// Temperature is the ordered qualification stage of a prospect.
type Temperature string

const (
	TempCold     Temperature = "Frío"
	TempWarm     Temperature = "Tibio"
	TempMedium   Temperature = "Medio"
	TempHot      Temperature = "Caliente"
	TempImminent Temperature = "Cierre Inminente"
)

// DefaultTemperature is assigned to prospects created without one.
const DefaultTemperature = TempCold

// Temperatures lists every temperature from coldest to hottest.
var Temperatures = []Temperature{TempCold, TempWarm, TempMedium, TempHot, TempImminent}

// Rank returns the position of t in the ordering, or -1 when t is unknown.
func (t Temperature) Rank() int {
	for i, v := range Temperatures {
		if v == t {
			return i
		}
	}
	return -1
}

func (t Temperature) Valid() bool { return t.Rank() >= 0 }

// IsHot reports whether t counts as a hot lead (Caliente or Cierre Inminente).
func (t Temperature) IsHot() bool { return t == TempHot || t == TempImminent }

// ============================================================
// Property status
// ============================================================

// PropertyStatus is the sales status of an inventory unit.
type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "Disponible"
	PropertyInProcess PropertyStatus = "En proceso"
	PropertyReserved  PropertyStatus = "Apartado"
	PropertySold      PropertyStatus = "Vendido"
)

// PropertyStatuses lists statuses in their forward order.
var PropertyStatuses = []PropertyStatus{PropertyAvailable, PropertyInProcess, PropertyReserved, PropertySold}

func (s PropertyStatus) Rank() int {
	for i, v := range PropertyStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

func (s PropertyStatus) Valid() bool { return s.Rank() >= 0 }

// Quotable reports whether a unit in this status may receive a new quote.
func (s PropertyStatus) Quotable() bool {
	return s == PropertyAvailable || s == PropertyInProcess
}

// CanTransitionTo reports whether s may move to next. Transitions only move
// forward unless rollback is set.
func (s PropertyStatus) CanTransitionTo(next PropertyStatus, rollback bool) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if rollback {
		return true
	}
	return next.Rank() >= s.Rank()
}

// ============================================================
// Activities
// ============================================================

// ActivityStatus is the stored status of a follow-up activity.
type ActivityStatus string

const (
	ActivityPending     ActivityStatus = "Pendiente"
	ActivityDone        ActivityStatus = "Realizada"
	ActivityNoAnswer    ActivityStatus = "No contestó"
	ActivityRescheduled ActivityStatus = "Reprogramada"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityPending, ActivityDone, ActivityNoAnswer, ActivityRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s ActivityStatus) Terminal() bool {
	return s == ActivityDone || s == ActivityNoAnswer
}

// CanTransitionTo encodes the activity state machine:
// Pendiente -> {Realizada, No contestó, Reprogramada}, Reprogramada -> {Pendiente, Reprogramada}.
func (s ActivityStatus) CanTransitionTo(next ActivityStatus) bool {
	switch s {
	case ActivityPending:
		return next == ActivityDone || next == ActivityNoAnswer || next == ActivityRescheduled
	case ActivityRescheduled:
		return next == ActivityPending || next == ActivityRescheduled
	}
	return false
}

// ActivityType is the kind of follow-up action.
type ActivityType string

const (
	ActivityCall     ActivityType = "Llamada telefónica"
	ActivitySendInfo ActivityType = "Envío de información (WhatsApp/Correo)"
	ActivitySiteTour ActivityType = "Visita al desarrollo"
	ActivityMeeting  ActivityType = "Cita en oficina"
	ActivityFollowUp ActivityType = "Seguimiento general"
)

var ActivityTypes = []ActivityType{ActivityCall, ActivitySendInfo, ActivitySiteTour, ActivityMeeting, ActivityFollowUp}

func (t ActivityType) Valid() bool {
	for _, v := range ActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ActivityClass is the read-time classification of an activity. It is never stored.
type ActivityClass string

const (
	ClassPending     ActivityClass = "pending"
	ClassCompleted   ActivityClass = "completed"
	ClassOverdue     ActivityClass = "overdue"
	ClassRescheduled ActivityClass = "rescheduled"
)

// ============================================================
// Lead source
// ============================================================

type LeadSource string

const (
	SourceReferral   LeadSource = "Referido"
	SourceSocial     LeadSource = "Redes Sociales"
	SourcePortal     LeadSource = "Portal Inmobiliario"
	SourceBillboard  LeadSource = "Espectacular"
	SourceAds        LeadSource = "Facebook/Instagram Ads"
	SourceDirectCall LeadSource = "Llamada directa"
	SourceOther      LeadSource = "Otro"
)

var LeadSources = []LeadSource{SourceReferral, SourceSocial, SourcePortal, SourceBillboard, SourceAds, SourceDirectCall, SourceOther}

// Valid accepts the empty source (unknown origin) and the known sources.
func (s LeadSource) Valid() bool {
	if s == "" {
		return true
	}
	for _, v := range LeadSources {
		if v == s {
			return true
		}
	}
	return false
}
