package member

import "time"

type Member struct {
	MemberID     int64     `json:"memberId"`
	BranchID     int64     `json:"branchId"`
	GroupID      *int64    `json:"groupId,omitempty"`
	MemberNumber string    `json:"memberNumber"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	NationalID   string    `json:"nationalId"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	Overdue      bool      `json:"overdue"`
	Active       bool      `json:"active"`
	LoanID       *int64    `json:"loanId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewMember(branchID int64, groupID *int64, name, phone, address, nationalID, photoURL string) *Member {
	now := time.Now()
	return &Member{
		BranchID:   branchID,
		GroupID:    groupID,
		Name:       name,
		Phone:      phone,
		Address:    address,
		NationalID: nationalID,
		PhotoURL:   photoURL,
		Overdue:    false,
		Active:     true,
		LoanID:     nil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (m *Member) AssignLoan(loanID int64) {
	m.LoanID = &loanID
	m.UpdatedAt = time.Now()
}

func (m *Member) AssignGroup(groupID int64) {
	m.GroupID = &groupID
	m.UpdatedAt = time.Now()
}

func (m *Member) SetOverdueStanding(overdue bool) {
	if m.Overdue != overdue {
		m.Overdue = overdue
		m.UpdatedAt = time.Now()
	}
}

func (m *Member) Deactivate() {
	if m.Active {
		m.Active = false
		m.UpdatedAt = time.Now()
	}
}
