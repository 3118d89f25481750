package branch

import "time"

type Branch struct {
	BranchID  int64     `json:"branchId"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewBranch(name, code, address, phone string) *Branch {
	now := time.Now()
	return &Branch{
		Name:      name,
		Code:      code,
		Address:   address,
		Phone:     phone,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (b *Branch) Deactivate() {
	if b.Active {
		b.Active = false
		b.UpdatedAt = time.Now()
	}
}

func (b *Branch) Reactivate() {
	if !b.Active {
		b.Active = true
		b.UpdatedAt = time.Now()
	}
}
