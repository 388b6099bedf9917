package latch

// Admission is the outcome of the access gate for a single request
type Admission int

const (
	AdmitAllow Admission = iota
	AdmitRedirect
	AdmitForbid
)

func (a Admission) String() string {
	switch a {
	case AdmitAllow:
		return "allow"
	case AdmitRedirect:
		return "redirect"
	case AdmitForbid:
		return "forbid"
	}
	return "unknown"
}

// PairingRequirement is the pairing state a view requires
type PairingRequirement int

const (
	RequirePairedState PairingRequirement = iota
	RequireUnpairedState
)

func (r PairingRequirement) String() string {
	if r == RequireUnpairedState {
		return "unpaired"
	}
	return "paired"
}

// AdmissionPolicy is the one decision rule shared by every gate shape.
// Anonymous requests are sent to login, authenticated requests in the
// wrong pairing state are forbidden.
func AdmissionPolicy(authenticated, paired bool, requirement PairingRequirement) Admission {
	if !authenticated {
		return AdmitRedirect
	}

	switch requirement {
	case RequirePairedState:
		if paired {
			return AdmitAllow
		}
	case RequireUnpairedState:
		if !paired {
			return AdmitAllow
		}
	}

	return AdmitForbid
}
