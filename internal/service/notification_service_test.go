package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"formflow/backend/internal/dto"
	"formflow/backend/internal/event"
	"formflow/backend/internal/workflow"
)

func setupTestNotificationService(t *testing.T) (NotificationService, *workflowFixture) {
	f := newWorkflowFixture(t)
	return NewNotificationService(f.repo, f.pub, zap.NewNop()), f
}

func TestNotificationService_ListDerivesDisplayStatus(t *testing.T) {
	svc, f := setupTestNotificationService(t)
	ctx := context.Background()

	list, total, err := svc.ListForUser(ctx, f.alice.UserID, &dto.NotificationListRequest{})
	if err != nil {
		t.Fatalf("ListForUser 应成功: %v", err)
	}
	if total != 1 || list[0].DisplayStatus != string(workflow.DisplayPending) || !list[0].CanFill {
		t.Fatalf("分配后期望 1 条 pending 且可填写，实际 %+v", list)
	}

	sub := f.submitAll(t, f.alice).Submission
	list, _, _ = svc.ListForUser(ctx, f.alice.UserID, &dto.NotificationListRequest{})
	if list[0].DisplayStatus != string(workflow.DisplayInProcess) || list[0].CanFill {
		t.Errorf("提交后期望 in-process 且不可填写，实际 %s/%v", list[0].DisplayStatus, list[0].CanFill)
	}

	// 审核人待办跟随提交状态
	pending, _, _ := svc.ListForUser(ctx, f.reviewer.UserID, &dto.NotificationListRequest{})
	if len(pending) != 1 || pending[0].Type != string(workflow.NotifSubmissionPending) {
		t.Fatalf("审核人期望 1 条待办，实际 %+v", pending)
	}
	if pending[0].CanFill {
		t.Error("待办通知不应允许填写")
	}

	f.review(t, f.admin, sub.SubmissionID, ReviewDecision{Reasons: map[string]string{f.pdfField: "缺页"}})
	pending, _, _ = svc.ListForUser(ctx, f.reviewer.UserID, &dto.NotificationListRequest{})
	if pending[0].DisplayStatus != string(workflow.DisplayRejected) {
		t.Errorf("驳回后待办展示状态期望 rejected，实际 %s", pending[0].DisplayStatus)
	}
	list, _, _ = svc.ListForUser(ctx, f.alice.UserID, &dto.NotificationListRequest{})
	if !list[0].CanFill {
		t.Error("驳回后应允许重新填写")
	}
}

func TestNotificationService_UnreadOnlyAndPaging(t *testing.T) {
	svc, f := setupTestNotificationService(t)
	ctx := context.Background()

	f.submitAll(t, f.alice)
	f.submitAll(t, f.bob)

	unread, total, err := svc.ListForUser(ctx, f.reviewer.UserID, &dto.NotificationListRequest{UnreadOnly: true})
	if err != nil || total != 2 || len(unread) != 2 {
		t.Fatalf("期望 2 条未读待办，实际 %d, %v", total, err)
	}

	req := &dto.NotificationListRequest{}
	req.PageSize = 1
	page, total, _ := svc.ListForUser(ctx, f.reviewer.UserID, req)
	if total != 2 || len(page) != 1 {
		t.Errorf("分页期望 total=2 len=1，实际 %d/%d", total, len(page))
	}

	// 提交后分配人通知为已读
	aliceUnread, _, _ := svc.ListForUser(ctx, f.alice.UserID, &dto.NotificationListRequest{UnreadOnly: true})
	if len(aliceUnread) != 0 {
		t.Errorf("提交后分配人不应有未读通知，实际 %d", len(aliceUnread))
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	svc, f := setupTestNotificationService(t)
	ctx := context.Background()
	n := f.assignmentNotif(t, f.alice.UserID)

	resp, err := svc.MarkRead(ctx, f.alice.UserID, n.NotificationID)
	if err != nil {
		t.Fatalf("MarkRead 应成功: %v", err)
	}
	if resp.Status != string(workflow.NotifRead) || resp.ReadAt == nil {
		t.Errorf("期望已读且记录时间，实际 %s/%v", resp.Status, resp.ReadAt)
	}
	if kinds := f.pub.kinds(); len(kinds) != 1 || kinds[0] != event.KindNotificationUpdated {
		t.Errorf("期望发布 NotificationUpdated，实际 %v", kinds)
	}

	// 已读后仍可填写：已读状态不影响 can_fill
	if !resp.CanFill {
		t.Error("已读的分配通知仍应允许填写")
	}

	if _, err := svc.MarkRead(ctx, f.bob.UserID, n.NotificationID); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("他人的通知期望 ErrNotificationNotFound，实际: %v", err)
	}
}
