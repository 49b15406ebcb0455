package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/enum"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicecore/internal/infrastructure/repository"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"github.com/shopspring/decimal"
)

func createTestApprovalService(t *testing.T, mirror repository.AccountingMirror) *ApprovalService {
	t.Helper()
	db := createTestDB(t)
	sequences := NewSequenceService(infraRepo.NewSequenceRepository(db), 5*time.Second)
	sequences.now = fixedClock(time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC))
	return NewApprovalService(infraRepo.NewExpenseReportRepository(db), sequences, mirror, time.Second)
}

func testReportInput(owner uuid.UUID, title string) *CreateExpenseReportInput {
	return &CreateExpenseReportInput{
		UserID: owner,
		ReportHeaderInput: ReportHeaderInput{
			Title:      title,
			CostCenter: "CC-100",
		},
		Lines: []ExpenseLineInput{
			{Description: "Taxi", SeriesNumber: "f001-1", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("10.50")},
			{Description: "Coffee", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("3.333")},
		},
	}
}

func createApprovedReport(t *testing.T, ctx context.Context, svc *ApprovalService, title string) *entity.ExpenseReport {
	t.Helper()
	report, err := svc.CreateReport(ctx, testReportInput(uuid.New(), title))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	report, err = svc.Approve(ctx, report.ID, uuid.New(), nil)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	return report
}

func TestApprovalService_CreateReport(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, tenantID := tenantContext(t)
	owner := uuid.New()

	report, err := svc.CreateReport(ctx, testReportInput(owner, " Lima trip "))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}

	if report.Number != "2025-001" {
		t.Errorf("Number = %q, want 2025-001", report.Number)
	}
	if report.TenantID != tenantID || report.UserID != owner || report.Title != "Lima trip" {
		t.Errorf("unexpected header %+v", report)
	}
	if report.ApprovalState != enum.ApprovalStatePending || report.Currency != "PEN" {
		t.Errorf("state %s currency %s", report.ApprovalState, report.Currency)
	}
	// 2 x 10.50 + 1 x 3.333 rounded per line
	if !report.TotalAmount.Equal(decimal.RequireFromString("24.33")) {
		t.Errorf("TotalAmount = %s, want 24.33", report.TotalAmount)
	}
	if len(report.Lines) != 2 || report.Lines[0].Position != 1 || report.Lines[1].Position != 2 {
		t.Fatalf("unexpected lines %+v", report.Lines)
	}
	if report.Lines[0].SeriesNumber != "F001-1" || !report.Lines[0].Subtotal.Equal(decimal.RequireFromString("21")) {
		t.Errorf("unexpected first line %+v", report.Lines[0])
	}

	second, err := svc.CreateReport(ctx, testReportInput(owner, "Second"))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	if second.Number != "2025-002" {
		t.Errorf("second Number = %q, want 2025-002", second.Number)
	}
}

func TestApprovalService_CreateReportValidation(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)

	noLines := testReportInput(uuid.New(), "Empty")
	noLines.Lines = nil
	badLine := testReportInput(uuid.New(), "Bad")
	badLine.Lines[0].Quantity = decimal.Zero
	noTitle := testReportInput(uuid.New(), "  ")

	for name, input := range map[string]*CreateExpenseReportInput{"no lines": noLines, "zero quantity": badLine, "no title": noTitle} {
		if _, err := svc.CreateReport(ctx, input); !apperror.HasKind(err, apperror.KindValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}

	last, err := svc.sequences.Peek(ctx, DomainKeyExpenseReport)
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if last != 0 {
		t.Errorf("invalid input must not consume numbers, counter at %d", last)
	}
}

func TestApprovalService_CreateReportAllocationFailure(t *testing.T) {
	db := createTestDB(t)
	sequences := NewSequenceService(&mockSequenceRepo{
		NextFunc: func(ctx context.Context, domainKey string) (int64, error) {
			return 0, repository.ErrSerialization
		},
	}, time.Second)
	svc := NewApprovalService(infraRepo.NewExpenseReportRepository(db), sequences, &mockAccountingMirror{}, time.Second)
	ctx, _ := tenantContext(t)

	if _, err := svc.CreateReport(ctx, testReportInput(uuid.New(), "Trip")); !apperror.HasKind(err, apperror.KindConcurrency) {
		t.Fatalf("expected concurrency error, got %v", err)
	}

	var count int64
	db.Model(&entity.ExpenseReport{}).Count(&count)
	if count != 0 {
		t.Errorf("expected nothing persisted, found %d reports", count)
	}
}

func TestApprovalService_DecisionsArePendingOnly(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)
	approver := uuid.New()

	report, err := svc.CreateReport(ctx, testReportInput(uuid.New(), "Trip"))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}

	approved, err := svc.Approve(ctx, report.ID, approver, strPtr(" looks good "))
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if approved.ApprovalState != enum.ApprovalStateApproved || *approved.ApproverID != approver || approved.ApprovedAt == nil {
		t.Errorf("approval not stamped: %+v", approved)
	}
	if approved.ApprovalComment == nil || *approved.ApprovalComment != "looks good" {
		t.Errorf("comment = %v", approved.ApprovalComment)
	}

	if _, err := svc.Approve(ctx, report.ID, approver, nil); !apperror.HasKind(err, apperror.KindConflict) {
		t.Errorf("expected conflict approving twice, got %v", err)
	}
	if _, err := svc.Reject(ctx, report.ID, approver, nil); !apperror.HasKind(err, apperror.KindConflict) {
		t.Errorf("expected conflict rejecting an approved report, got %v", err)
	}
	if _, err := svc.Approve(ctx, uuid.New(), approver, nil); !apperror.HasKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestApprovalService_AssignTwiceKeepsFirstBucket(t *testing.T) {
	mirror := &mockAccountingMirror{}
	svc := createTestApprovalService(t, mirror)
	ctx, _ := tenantContext(t)
	report := createApprovedReport(t, ctx, svc, "Trip")

	first, err := svc.AssignToBucket(ctx, report.ID, enum.BucketTypePettyCash, "PC-001")
	if err != nil {
		t.Fatalf("AssignToBucket() error = %v", err)
	}
	if !first.SQLServerSaved || first.SQLServerError != nil {
		t.Errorf("expected mirror write to succeed, got %+v", first)
	}

	_, err = svc.AssignToBucket(ctx, report.ID, enum.BucketTypeAdvanceSettlement, "AS-999")
	if !apperror.HasKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict on re-assignment, got %v", err)
	}

	stored, err := svc.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if *stored.BucketNumber != "PC-001" || stored.BucketType != enum.BucketTypePettyCash {
		t.Errorf("first bucket changed: %s %s", stored.BucketType, *stored.BucketNumber)
	}
	if stored.MirrorSavedAt == nil || stored.MirrorError != nil {
		t.Errorf("mirror outcome not stamped: saved %v err %v", stored.MirrorSavedAt, stored.MirrorError)
	}
	if got := mirror.savedNumbers(); len(got) != 1 {
		t.Errorf("expected one mirror write, got %v", got)
	}
}

func TestApprovalService_AssignRequiresApproval(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)

	report, err := svc.CreateReport(ctx, testReportInput(uuid.New(), "Trip"))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}

	if _, err := svc.AssignToBucket(ctx, report.ID, enum.BucketTypePettyCash, "PC-1"); !apperror.HasKind(err, apperror.KindConflict) {
		t.Errorf("expected conflict for pending report, got %v", err)
	}
	if _, err := svc.AssignToBucket(ctx, report.ID, enum.BucketTypeNone, "PC-1"); !apperror.HasKind(err, apperror.KindValidation) {
		t.Errorf("expected validation error for NONE bucket, got %v", err)
	}
	if _, err := svc.AssignToBucket(ctx, report.ID, enum.BucketTypePettyCash, " "); !apperror.HasKind(err, apperror.KindValidation) {
		t.Errorf("expected validation error for blank bucket, got %v", err)
	}
}

func TestApprovalService_RejectEditCycle(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)
	owner := uuid.New()

	report, err := svc.CreateReport(ctx, testReportInput(owner, "Trip"))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	rejected, err := svc.Reject(ctx, report.ID, uuid.New(), strPtr("missing receipt"))
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.ApprovalState != enum.ApprovalStateRejected || rejected.ApproverID == nil {
		t.Fatalf("unexpected rejection %+v", rejected)
	}

	edited, err := svc.EditReport(ctx, report.ID, &EditExpenseReportInput{
		EditorID:          owner,
		ReportHeaderInput: ReportHeaderInput{Title: "Trip (fixed)", Currency: "usd"},
		Lines: []ExpenseLineInput{
			{Description: "Hotel", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("80")},
		},
	})
	if err != nil {
		t.Fatalf("EditReport() error = %v", err)
	}

	if edited.ApprovalState != enum.ApprovalStatePending {
		t.Errorf("state = %s, want PENDING", edited.ApprovalState)
	}
	if edited.ApproverID != nil || edited.ApprovedAt != nil || edited.ApprovalComment != nil {
		t.Errorf("approval fields not cleared: %v %v %v", edited.ApproverID, edited.ApprovedAt, edited.ApprovalComment)
	}
	if edited.BucketNumber != nil || edited.AssignedAt != nil || edited.BucketType != enum.BucketTypeNone {
		t.Errorf("bucket fields not cleared")
	}
	if edited.Number != report.Number {
		t.Errorf("number must survive edits: %s != %s", edited.Number, report.Number)
	}
	if len(edited.Lines) != 1 || edited.Lines[0].Description != "Hotel" {
		t.Errorf("lines not replaced: %+v", edited.Lines)
	}
	if !edited.TotalAmount.Equal(decimal.NewFromInt(240)) || edited.Currency != "USD" {
		t.Errorf("total %s currency %s", edited.TotalAmount, edited.Currency)
	}

	// back in the queue, the report can be approved again
	if _, err := svc.Approve(ctx, report.ID, uuid.New(), nil); err != nil {
		t.Errorf("Approve() after edit error = %v", err)
	}
}

func TestApprovalService_EditGuards(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)
	owner := uuid.New()

	pending, err := svc.CreateReport(ctx, testReportInput(owner, "Pending"))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	approved := createApprovedReport(t, ctx, svc, "Approved")

	edit := func(privileged bool, editor uuid.UUID) *EditExpenseReportInput {
		input := testReportInput(editor, "Edited")
		return &EditExpenseReportInput{EditorID: editor, Privileged: privileged, ReportHeaderInput: input.ReportHeaderInput, Lines: input.Lines}
	}

	if _, err := svc.EditReport(ctx, pending.ID, edit(false, owner)); !apperror.HasKind(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden for unprivileged pending edit, got %v", err)
	}
	if _, err := svc.EditReport(ctx, approved.ID, edit(true, uuid.New())); !apperror.HasKind(err, apperror.KindConflict) {
		t.Errorf("expected conflict editing an approved report, got %v", err)
	}

	edited, err := svc.EditReport(ctx, pending.ID, edit(true, uuid.New()))
	if err != nil {
		t.Fatalf("privileged pending edit error = %v", err)
	}
	if edited.Title != "Edited" || edited.UserID != owner {
		t.Errorf("unexpected edit result %+v", edited)
	}

	rejected, err := svc.Reject(ctx, pending.ID, uuid.New(), nil)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if _, err := svc.EditReport(ctx, rejected.ID, edit(false, uuid.New())); !apperror.HasKind(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden for a stranger editing a rejected report, got %v", err)
	}
}

func TestApprovalService_DualWriteIsolation(t *testing.T) {
	ctx, _ := tenantContext(t)
	var failing uuid.UUID
	mirror := &mockAccountingMirror{
		SaveReportFunc: func(ctx context.Context, report *entity.ExpenseReport) error {
			if report.ID == failing {
				return errors.New("mssql: constraint violation")
			}
			return nil
		},
	}
	svc := createTestApprovalService(t, mirror)

	reports := []*entity.ExpenseReport{
		createApprovedReport(t, ctx, svc, "One"),
		createApprovedReport(t, ctx, svc, "Two"),
		createApprovedReport(t, ctx, svc, "Three"),
	}
	failing = reports[1].ID

	ids := []uuid.UUID{reports[0].ID, reports[1].ID, reports[2].ID}
	result, err := svc.BulkAssign(ctx, ids, enum.BucketTypeAdvanceSettlement, "AS-2025-07")
	if err != nil {
		t.Fatalf("BulkAssign() error = %v", err)
	}

	if result.Affected != 3 || len(result.Errors) != 0 || len(result.Items) != 3 {
		t.Fatalf("expected 3 committed assignments, got %+v", result)
	}

	for _, item := range result.Items {
		wantSaved := item.ID != failing
		if item.SQLServerSaved == nil || *item.SQLServerSaved != wantSaved {
			t.Errorf("item %s saved = %v, want %v", item.Number, item.SQLServerSaved, wantSaved)
		}
		if (item.SQLServerError != nil) == wantSaved {
			t.Errorf("item %s error = %v", item.Number, item.SQLServerError)
		}
	}

	for _, r := range reports {
		stored, err := svc.GetReport(ctx, r.ID)
		if err != nil {
			t.Fatalf("GetReport() error = %v", err)
		}
		if stored.ApprovalState != enum.ApprovalStateApproved || !stored.IsAssigned() || *stored.BucketNumber != "AS-2025-07" {
			t.Errorf("report %s not assigned: %+v", stored.Number, stored)
		}
		if (stored.MirrorError != nil) != (r.ID == failing) {
			t.Errorf("report %s mirror error = %v", stored.Number, stored.MirrorError)
		}
	}
}

func TestApprovalService_MirrorTimeoutDoesNotBlockAssignment(t *testing.T) {
	mirror := &mockAccountingMirror{
		SaveReportFunc: func(ctx context.Context, report *entity.ExpenseReport) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	svc := createTestApprovalService(t, mirror)
	svc.mirrorTimeout = 20 * time.Millisecond
	ctx, _ := tenantContext(t)
	report := createApprovedReport(t, ctx, svc, "Trip")

	result, err := svc.AssignToBucket(ctx, report.ID, enum.BucketTypePettyCash, "PC-7")
	if err != nil {
		t.Fatalf("AssignToBucket() error = %v", err)
	}
	if result.SQLServerSaved || result.SQLServerError == nil {
		t.Errorf("expected timed out mirror write, got %+v", result)
	}
	if !result.Report.IsAssigned() {
		t.Error("assignment must stay committed")
	}
}

func TestApprovalService_RetryMirror(t *testing.T) {
	fail := true
	mirror := &mockAccountingMirror{
		SaveReportFunc: func(ctx context.Context, report *entity.ExpenseReport) error {
			if fail {
				return errors.New("accounting store offline")
			}
			return nil
		},
	}
	svc := createTestApprovalService(t, mirror)
	ctx, _ := tenantContext(t)
	report := createApprovedReport(t, ctx, svc, "Trip")

	if _, err := svc.RetryMirror(ctx, report.ID); !apperror.HasKind(err, apperror.KindConflict) {
		t.Errorf("expected conflict retrying an unassigned report, got %v", err)
	}

	first, err := svc.AssignToBucket(ctx, report.ID, enum.BucketTypePettyCash, "PC-9")
	if err != nil {
		t.Fatalf("AssignToBucket() error = %v", err)
	}
	if first.SQLServerSaved {
		t.Fatal("expected the first mirror write to fail")
	}

	fail = false
	retried, err := svc.RetryMirror(ctx, report.ID)
	if err != nil {
		t.Fatalf("RetryMirror() error = %v", err)
	}
	if !retried.SQLServerSaved {
		t.Errorf("expected retry to succeed, got %+v", retried)
	}

	stored, err := svc.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if stored.MirrorError != nil || stored.MirrorSavedAt == nil {
		t.Errorf("mirror outcome not refreshed: saved %v err %v", stored.MirrorSavedAt, stored.MirrorError)
	}
}

func TestApprovalService_DisabledMirror(t *testing.T) {
	svc := createTestApprovalService(t, infraRepo.NewAccountingMirror(nil))
	ctx, _ := tenantContext(t)
	report := createApprovedReport(t, ctx, svc, "Trip")

	result, err := svc.AssignToBucket(ctx, report.ID, enum.BucketTypePettyCash, "PC-1")
	if err != nil {
		t.Fatalf("AssignToBucket() error = %v", err)
	}
	if result.SQLServerSaved || result.SQLServerError == nil || *result.SQLServerError != "accounting store not configured" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestApprovalService_BulkFiltersIneligible(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)
	approver := uuid.New()

	a, _ := svc.CreateReport(ctx, testReportInput(uuid.New(), "A"))
	b, _ := svc.CreateReport(ctx, testReportInput(uuid.New(), "B"))
	c := createApprovedReport(t, ctx, svc, "C")

	result, err := svc.BulkApprove(ctx, []uuid.UUID{a.ID, b.ID, c.ID, uuid.New()}, approver, nil)
	if err != nil {
		t.Fatalf("BulkApprove() error = %v", err)
	}
	if result.Affected != 2 || len(result.Items) != 2 || len(result.Errors) != 0 {
		t.Errorf("expected 2 approvals, got %+v", result)
	}

	// only APPROVED, unassigned reports are assigned
	d, _ := svc.CreateReport(ctx, testReportInput(uuid.New(), "D"))
	assigned, err := svc.BulkAssign(ctx, []uuid.UUID{a.ID, d.ID}, enum.BucketTypePettyCash, "PC-10")
	if err != nil {
		t.Fatalf("BulkAssign() error = %v", err)
	}
	if assigned.Affected != 1 || assigned.Items[0].ID != a.ID {
		t.Errorf("expected only %s assigned, got %+v", a.Number, assigned)
	}

	rejected, err := svc.BulkReject(ctx, []uuid.UUID{a.ID, d.ID}, approver, strPtr("duplicate"))
	if err != nil {
		t.Fatalf("BulkReject() error = %v", err)
	}
	if rejected.Affected != 1 || rejected.Items[0].ID != d.ID {
		t.Errorf("expected only %s rejected, got %+v", d.Number, rejected)
	}

	deleted, err := svc.BulkDelete(ctx, []uuid.UUID{a.ID, d.ID}, ReportActor{UserID: approver, Privileged: true})
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if deleted.Affected != 1 || deleted.Items[0].ID != d.ID {
		t.Errorf("expected only %s deleted, got %+v", d.Number, deleted)
	}
	if _, err := svc.GetReport(ctx, d.ID); !apperror.HasKind(err, apperror.KindNotFound) {
		t.Errorf("expected deleted report to be gone, got %v", err)
	}

	if _, err := svc.BulkApprove(ctx, nil, approver, nil); !apperror.HasKind(err, apperror.KindValidation) {
		t.Errorf("expected validation error for empty ids, got %v", err)
	}
}

func TestApprovalService_DeleteReport(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)

	approved := createApprovedReport(t, ctx, svc, "Approved")
	if err := svc.DeleteReport(ctx, approved.ID, ReportActor{UserID: approved.UserID}); !apperror.HasKind(err, apperror.KindConflict) {
		t.Errorf("expected conflict deleting an approved report, got %v", err)
	}

	owner := uuid.New()
	pending, err := svc.CreateReport(ctx, testReportInput(owner, "Pending"))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	if err := svc.DeleteReport(ctx, pending.ID, ReportActor{UserID: owner}); err != nil {
		t.Fatalf("DeleteReport() error = %v", err)
	}
	if _, err := svc.GetReport(ctx, pending.ID); !apperror.HasKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestApprovalService_ListReports(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)

	createApprovedReport(t, ctx, svc, "Approved trip")
	if _, err := svc.CreateReport(ctx, testReportInput(uuid.New(), "Pending trip")); err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}

	state := enum.ApprovalStatePending
	page, err := svc.ListReports(ctx, &repository.ExpenseReportFilterParams{State: &state})
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if page.Pagination.Total != 1 || page.Items[0].Title != "Pending trip" {
		t.Errorf("unexpected page %+v", page.Items)
	}

	page, err = svc.ListReports(ctx, &repository.ExpenseReportFilterParams{Search: "TRIP", Unassigned: true})
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if page.Pagination.Total != 2 {
		t.Errorf("expected 2 matches, got %d", page.Pagination.Total)
	}
}

func TestApprovalService_DeleteRequiresOwnerOrPrivilege(t *testing.T) {
	svc := createTestApprovalService(t, &mockAccountingMirror{})
	ctx, _ := tenantContext(t)

	owner, colleague := uuid.New(), uuid.New()
	mine, err := svc.CreateReport(ctx, testReportInput(owner, "Mine"))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	theirs, err := svc.CreateReport(ctx, testReportInput(colleague, "Theirs"))
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}

	if err := svc.DeleteReport(ctx, theirs.ID, ReportActor{UserID: owner}); !apperror.HasKind(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden deleting a colleague's report, got %v", err)
	}
	if _, err := svc.GetReport(ctx, theirs.ID); err != nil {
		t.Fatalf("colleague's report should survive, got %v", err)
	}

	result, err := svc.BulkDelete(ctx, []uuid.UUID{mine.ID, theirs.ID}, ReportActor{UserID: owner})
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if result.Affected != 1 || len(result.Items) != 1 || result.Items[0].ID != mine.ID {
		t.Errorf("expected only the caller's report deleted, got %+v", result)
	}
	if _, err := svc.GetReport(ctx, theirs.ID); err != nil {
		t.Errorf("bulk delete must skip non-owned reports, got %v", err)
	}

	if err := svc.DeleteReport(ctx, theirs.ID, ReportActor{UserID: owner, Privileged: true}); err != nil {
		t.Errorf("privileged delete failed: %v", err)
	}
}
