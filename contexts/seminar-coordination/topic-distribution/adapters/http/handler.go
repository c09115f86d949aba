package httpadapter

import (
	"context"
	"log/slog"

	"topicdesk/contexts/seminar-coordination/topic-distribution/application/commands"
	"topicdesk/contexts/seminar-coordination/topic-distribution/application/queries"
	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
	httptransport "topicdesk/contexts/seminar-coordination/topic-distribution/transport/http"
)

// Handler maps transport DTOs onto engine commands and queries. Route
// registration and admin enforcement live in the platform HTTP server.
type Handler struct {
	Distribution commands.UseCase
	Listings     queries.UseCase
	Logger       *slog.Logger
}

func (h Handler) CreateSubjectHandler(ctx context.Context, req httptransport.CreateSubjectRequest) (httptransport.SubjectResponse, error) {
	subject, err := h.Distribution.CreateSubject(ctx, commands.CreateSubjectCommand{Name: req.Name})
	if err != nil {
		return httptransport.SubjectResponse{}, err
	}
	return subjectResponse(subject), nil
}

func (h Handler) LoadTopicsHandler(ctx context.Context, subjectName string, req httptransport.LoadTopicsRequest) (httptransport.SubjectResponse, error) {
	subject, err := h.Distribution.LoadTopics(ctx, commands.LoadTopicsCommand{
		Subject:   subjectName,
		TopicList: req.TopicList,
	})
	if err != nil {
		return httptransport.SubjectResponse{}, err
	}
	return subjectResponse(subject), nil
}

func (h Handler) SetStartTimeHandler(ctx context.Context, subjectName string, req httptransport.SetStartTimeRequest) (httptransport.SubjectResponse, error) {
	subject, err := h.Distribution.SetStartTime(ctx, commands.SetStartTimeCommand{
		Subject: subjectName,
		Date:    req.Date,
		Time:    req.Time,
	})
	if err != nil {
		return httptransport.SubjectResponse{}, err
	}
	return subjectResponse(subject), nil
}

func (h Handler) ClaimTopicHandler(ctx context.Context, claimantID string, req httptransport.ClaimTopicRequest) (httptransport.ClaimTopicResponse, error) {
	result, err := h.Distribution.ClaimTopic(ctx, commands.ClaimTopicCommand{
		Subject:             req.Subject,
		TopicNumber:         req.TopicNumber,
		ClaimantID:          claimantID,
		DisplayName:         req.DisplayName,
		DisambiguationToken: req.DisambiguationToken,
	})
	if result.Ambiguous {
		// The rejection still carries everything the caller needs to retry.
		return httptransport.ClaimTopicResponse{
			Ambiguous:           true,
			DisambiguationToken: result.DisambiguationToken,
			OpenSubjects:        result.OpenSubjects,
		}, nil
	}
	if err != nil {
		return httptransport.ClaimTopicResponse{}, err
	}
	reg := result.Registration
	return httptransport.ClaimTopicResponse{
		Subject:     reg.SubjectName,
		TopicNumber: reg.TopicNumber,
		TopicTitle:  result.TopicTitle,
		ClaimantID:  reg.ClaimantID,
		DisplayName: reg.DisplayName,
		ClaimedAt:   reg.ClaimedAt,
	}, nil
}

func (h Handler) CancelClaimHandler(ctx context.Context, subjectName string, topicNumber int) (httptransport.RegistrationResponse, error) {
	reg, err := h.Distribution.CancelClaim(ctx, commands.RemoveClaimCommand{
		Subject:     subjectName,
		TopicNumber: topicNumber,
	})
	if err != nil {
		return httptransport.RegistrationResponse{}, err
	}
	return registrationResponse(reg, ""), nil
}

func (h Handler) RemoveClaimHandler(ctx context.Context, subjectName string, topicNumber int) (httptransport.RegistrationResponse, error) {
	reg, err := h.Distribution.RemoveClaim(ctx, commands.RemoveClaimCommand{
		Subject:     subjectName,
		TopicNumber: topicNumber,
	})
	if err != nil {
		return httptransport.RegistrationResponse{}, err
	}
	return registrationResponse(reg, ""), nil
}

func (h Handler) ListSubjectsHandler(ctx context.Context) (httptransport.ListSubjectsResponse, error) {
	summaries, err := h.Listings.ListSubjects(ctx)
	if err != nil {
		return httptransport.ListSubjectsResponse{}, err
	}
	items := make([]httptransport.SubjectSummaryItem, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, httptransport.SubjectSummaryItem{
			Name:              summary.Name,
			TopicCount:        summary.TopicCount,
			RegistrationCount: summary.RegistrationCount,
			StartTime:         summary.StartTime,
		})
	}
	return httptransport.ListSubjectsResponse{Items: items}, nil
}

func (h Handler) SnapshotHandler(ctx context.Context, subjectName string) (httptransport.SnapshotResponse, error) {
	snapshot, err := h.Listings.Snapshot(ctx, subjectName)
	if err != nil {
		return httptransport.SnapshotResponse{}, err
	}
	topics := make([]httptransport.TopicStatusItem, 0, len(snapshot.Topics))
	for _, status := range snapshot.Topics {
		item := httptransport.TopicStatusItem{
			Number:  status.Number,
			Title:   status.Title,
			Claimed: status.Claimed,
		}
		if status.Claimed {
			item.DisplayName = status.DisplayName
			claimedAt := status.ClaimedAt
			item.ClaimedAt = &claimedAt
		}
		topics = append(topics, item)
	}
	return httptransport.SnapshotResponse{
		Subject:   snapshot.Name,
		Topics:    topics,
		Open:      snapshot.Open,
		StartTime: snapshot.StartTime,
		OpensIn:   snapshot.Countdown(),
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, subjectName string) (httptransport.ResultsResponse, error) {
	regs, titles, err := h.Listings.Results(ctx, subjectName)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	items := make([]httptransport.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		items = append(items, registrationResponse(reg, titles[reg.TopicNumber]))
	}
	return httptransport.ResultsResponse{Subject: subjectName, Items: items}, nil
}

func subjectResponse(subject entities.Subject) httptransport.SubjectResponse {
	return httptransport.SubjectResponse{
		Name:       subject.Name,
		TopicCount: len(subject.Topics),
		StartTime:  subject.StartTime,
	}
}

func registrationResponse(reg entities.Registration, title string) httptransport.RegistrationResponse {
	return httptransport.RegistrationResponse{
		Subject:     reg.SubjectName,
		TopicNumber: reg.TopicNumber,
		TopicTitle:  title,
		ClaimantID:  reg.ClaimantID,
		DisplayName: reg.DisplayName,
		ClaimedAt:   reg.ClaimedAt,
	}
}
