package postgres

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"

	"microfin-office/internal/domain/member"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

const pgxmockExpectationsNotMetMsg = "there were unfulfilled pgxmock expectations"

var memberLoanID int64 = 123

var memberTest = &member.Member{
	MemberID:     1,
	BranchID:     2,
	MemberNumber: "KMD-0001",
	Name:         "Jane Achieng",
	Phone:        "0712000000",
	Address:      "12 Market Rd",
	NationalID:   "CM9001",
	Overdue:      false,
	Active:       true,
	LoanID:       &memberLoanID,
	CreatedAt:    time.Now(),
	UpdatedAt:    time.Now(),
}

func setupMemberRepo(t *testing.T) (context.Context, *MemberRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewMemberRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func TestCreateMemberWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	query := `
        INSERT INTO members (branch_id, group_id, name, phone, address, national_id, photo_url, overdue, active, loan_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        RETURNING id, member_number, created_at, updated_at`

	newMember := &member.Member{
		BranchID:   memberTest.BranchID,
		Name:       memberTest.Name,
		Phone:      memberTest.Phone,
		Address:    memberTest.Address,
		NationalID: memberTest.NationalID,
		Active:     true,
	}

	mockPool.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(
		newMember.BranchID,
		newMember.GroupID,
		newMember.Name,
		newMember.Phone,
		newMember.Address,
		newMember.NationalID,
		newMember.PhotoURL,
		newMember.Overdue,
		newMember.Active,
		newMember.LoanID,
	).WillReturnRows(pgxmock.NewRows([]string{"id", "member_number", "created_at", "updated_at"}).
		AddRow(memberTest.MemberID, memberTest.MemberNumber, memberTest.CreatedAt, memberTest.UpdatedAt))

	err := repo.Save(ctx, newMember)
	assert.NoError(t, err)
	assert.Equal(t, memberTest.MemberID, newMember.MemberID)
	assert.Equal(t, memberTest.MemberNumber, newMember.MemberNumber)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveExistingMemberWhenSuccess(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	query := `
        UPDATE members
        SET branch_id = $1,
            group_id = $2,
            name = $3,
            phone = $4,
            address = $5,
            national_id = $6,
            photo_url = $7,
            overdue = $8,
            active = $9,
            loan_id = $10,
            updated_at = NOW()
        WHERE id = $11`

	mockPool.ExpectExec(regexp.QuoteMeta(query)).WithArgs(
		memberTest.BranchID,
		memberTest.GroupID,
		memberTest.Name,
		memberTest.Phone,
		memberTest.Address,
		memberTest.NationalID,
		memberTest.PhotoURL,
		memberTest.Overdue,
		memberTest.Active,
		memberTest.LoanID,
		memberTest.MemberID,
	).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Save(ctx, memberTest)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func memberRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "branch_id", "group_id", "member_number", "name", "phone", "address", "national_id", "photo_url", "overdue", "active", "loan_id", "created_at", "updated_at"}).
		AddRow(memberTest.MemberID, memberTest.BranchID, memberTest.GroupID, memberTest.MemberNumber, memberTest.Name, memberTest.Phone, memberTest.Address, memberTest.NationalID, memberTest.PhotoURL, memberTest.Overdue, memberTest.Active, memberTest.LoanID, memberTest.CreatedAt, memberTest.UpdatedAt)
}

func TestFindMemberByIDReturnOne(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	query := `
        SELECT ` + memberColumns + `
        FROM members
        WHERE id = $1`

	mockPool.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(memberTest.MemberID).WillReturnRows(memberRows())

	memberResult, err := repo.FindByID(ctx, memberTest.MemberID)
	assert.NoError(t, err)
	assert.Equal(t, memberTest.MemberID, memberResult.MemberID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindMemberByIDReturnNone(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	query := `
        SELECT ` + memberColumns + `
        FROM members
        WHERE id = $1`

	mockPool.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(memberTest.MemberID).WillReturnError(pgx.ErrNoRows)

	memberResult, err := repo.FindByID(ctx, memberTest.MemberID)
	assert.ErrorIs(t, err, member.ErrNotFound)
	assert.Nil(t, memberResult)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindMemberByLoanIDReturnOne(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	query := `
        SELECT ` + memberColumns + `
        FROM members
        WHERE loan_id = $1`

	mockPool.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(memberLoanID).WillReturnRows(memberRows())

	memberResult, err := repo.FindByLoanID(ctx, memberLoanID)
	assert.NoError(t, err)
	assert.Equal(t, memberTest.MemberID, memberResult.MemberID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindAllMembersFilteredByBranch(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	query := `
        SELECT ` + memberColumns + `
        FROM members
        WHERE 1=1 AND branch_id = $1 AND active = $2 ORDER BY id ASC`

	mockPool.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(memberTest.BranchID, true).
		WillReturnRows(memberRows())

	branchID := memberTest.BranchID
	memberResult, err := repo.FindAll(ctx, member.ListFilter{BranchID: &branchID, ActiveOnly: true})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(memberResult))
	assert.Equal(t, memberTest.MemberID, memberResult[0].MemberID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSetOverdueStandingWhenMemberMissing(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	query := `UPDATE members SET overdue = $1, updated_at = NOW() WHERE id = $2`

	mockPool.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(true, int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetOverdueStanding(ctx, 42, true)
	assert.ErrorIs(t, err, member.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
