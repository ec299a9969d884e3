package usecases

import (
	"context"

	"linecs/internal/entities"
)

// DashboardStats is the snapshot shown on the admin overview page.
type DashboardStats struct {
	Conversations   int                    `json:"conversations"`
	OpenTickets     int                    `json:"open_tickets"`
	FAQDocuments    int                    `json:"faq_documents"`
	ActiveChatUsers int                    `json:"active_chat_users"`
	ActiveQueues    int                    `json:"active_queues"`
	LatestDigest    *entities.DigestReport `json:"latest_digest,omitempty"`
}

type conversationCounter interface {
	Count(ctx context.Context) (int, error)
}

type ticketCounter interface {
	CountOpen(ctx context.Context) (int, error)
}

type faqCounter interface {
	Count(ctx context.Context) (int, error)
}

// limiterStats and queueStats expose in-process ingress counters.
type limiterStats interface {
	ActiveUsers() int
}

type queueStats interface {
	ActiveQueues() int
}

type DashboardUsecase struct {
	conversations conversationCounter
	tickets       ticketCounter
	faqs          faqCounter
	digests       DigestStore
	limiter       limiterStats
	dispatcher    queueStats
}

func NewDashboardUsecase(conversations conversationCounter, tickets ticketCounter, faqs faqCounter, digests DigestStore, limiter limiterStats, dispatcher queueStats) *DashboardUsecase {
	return &DashboardUsecase{
		conversations: conversations,
		tickets:       tickets,
		faqs:          faqs,
		digests:       digests,
		limiter:       limiter,
		dispatcher:    dispatcher,
	}
}

func (uc *DashboardUsecase) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	var err error
	if stats.Conversations, err = uc.conversations.Count(ctx); err != nil {
		return nil, err
	}
	if stats.OpenTickets, err = uc.tickets.CountOpen(ctx); err != nil {
		return nil, err
	}
	if stats.FAQDocuments, err = uc.faqs.Count(ctx); err != nil {
		return nil, err
	}

	if uc.limiter != nil {
		stats.ActiveChatUsers = uc.limiter.ActiveUsers()
	}
	if uc.dispatcher != nil {
		stats.ActiveQueues = uc.dispatcher.ActiveQueues()
	}

	digests, err := uc.digests.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(digests) > 0 {
		stats.LatestDigest = &digests[0]
	}
	return stats, nil
}
