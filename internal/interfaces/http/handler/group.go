package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	groupingapp "github.com/tippool/backend/internal/application/grouping"
)

// GroupHandler handles tip-group API endpoints
type GroupHandler struct {
	BaseHandler
	groupService    *groupingapp.GroupService
	earningsService *groupingapp.EarningsService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupService *groupingapp.GroupService, earningsService *groupingapp.EarningsService) *GroupHandler {
	return &GroupHandler{
		groupService:    groupService,
		earningsService: earningsService,
	}
}

// Start godoc
// @ID           startGroup
//
//	@Summary		Start a tip group
//	@Description	Open a new tip group with the requesting worker as owner, optionally seeding additional active members
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			request			body		groupingapp.StartGroupRequest	true	"Group creation request"
//	@Success		201				{object}	APIResponse[groupingapp.GroupResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups [post]
func (h *GroupHandler) Start(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req groupingapp.StartGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	group, err := h.groupService.StartGroup(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, group)
}

// GetByID godoc
// @ID           getGroupById
//
//	@Summary		Get group by ID
//	@Description	Retrieve a tip group with its memberships
//	@Tags			groups
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			id				path		string	true	"Group ID"	format(uuid)
//	@Success		200				{object}	APIResponse[groupingapp.GroupResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id} [get]
func (h *GroupHandler) GetByID(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	group, err := h.groupService.GetGroup(c.Request.Context(), locationID, groupID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, group)
}

// ListOpen godoc
// @ID           listOpenGroups
//
//	@Summary		List open groups
//	@Description	List all currently open tip groups for the location
//	@Tags			groups
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Success		200				{object}	APIResponse[[]groupingapp.GroupResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups [get]
func (h *GroupHandler) ListOpen(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groups, err := h.groupService.ListOpenGroups(c.Request.Context(), locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, groups)
}

// RequestJoin godoc
// @ID           requestJoinGroup
//
//	@Summary		Request to join a group
//	@Description	File a join request for a worker; the request stays pending until the owner approves it
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string						false	"Location ID (optional for dev)"
//	@Param			id				path		string						true	"Group ID"	format(uuid)
//	@Param			request			body		groupingapp.JoinRequest		true	"Join request"
//	@Success		201				{object}	APIResponse[groupingapp.MembershipResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/join-requests [post]
func (h *GroupHandler) RequestJoin(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	var req groupingapp.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	membership, err := h.groupService.RequestJoin(c.Request.Context(), locationID, groupID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, membership)
}

// ListPending godoc
// @ID           listPendingJoinRequests
//
//	@Summary		List pending join requests
//	@Description	List join requests awaiting owner approval, oldest first
//	@Tags			groups
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			id				path		string	true	"Group ID"	format(uuid)
//	@Success		200				{object}	APIResponse[[]groupingapp.MembershipResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/join-requests [get]
func (h *GroupHandler) ListPending(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	requests, err := h.groupService.ListPendingRequests(c.Request.Context(), locationID, groupID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, requests)
}

// ApproveJoin godoc
// @ID           approveJoinRequest
//
//	@Summary		Approve a join request
//	@Description	Activate a pending membership and open a new timeline segment
//	@Tags			groups
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			id				path		string	true	"Group ID"		format(uuid)
//	@Param			membershipId	path		string	true	"Membership ID"	format(uuid)
//	@Success		200				{object}	APIResponse[groupingapp.MembershipResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/join-requests/{membershipId}/approve [post]
func (h *GroupHandler) ApproveJoin(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	membershipID, err := uuid.Parse(c.Param("membershipId"))
	if err != nil {
		h.BadRequest(c, "Invalid membership ID format")
		return
	}

	membership, err := h.groupService.ApproveJoin(c.Request.Context(), locationID, groupID, membershipID, time.Now().UTC())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, membership)
}

// AddMember godoc
// @ID           addGroupMember
//
//	@Summary		Add a member directly
//	@Description	Owner adds a worker to the group without a pending join request
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			id				path		string							true	"Group ID"	format(uuid)
//	@Param			request			body		groupingapp.AddMemberRequest	true	"Member to add"
//	@Success		201				{object}	APIResponse[groupingapp.MembershipResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	var req groupingapp.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	membership, err := h.groupService.AddMember(c.Request.Context(), locationID, groupID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, membership)
}

// RemoveMember godoc
// @ID           removeGroupMember
//
//	@Summary		Remove a member
//	@Description	Remove a worker from the group and seal the current segment; already-earned credits are untouched
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			id				path		string							true	"Group ID"	format(uuid)
//	@Param			workerId		path		string							true	"Worker ID"	format(uuid)
//	@Param			request			body		groupingapp.RemoveMemberRequest	false	"Removal time"
//	@Success		200				{object}	APIResponse[groupingapp.MembershipResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/members/{workerId} [delete]
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	workerID, err := uuid.Parse(c.Param("workerId"))
	if err != nil {
		h.BadRequest(c, "Invalid worker ID format")
		return
	}

	var req groupingapp.RemoveMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, err.Error())
		return
	}
	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	membership, err := h.groupService.RemoveMember(c.Request.Context(), locationID, groupID, workerID, at)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, membership)
}

// TransferOwnership godoc
// @ID           transferGroupOwnership
//
//	@Summary		Transfer group ownership
//	@Description	Hand the group to another active member
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string									false	"Location ID (optional for dev)"
//	@Param			id				path		string									true	"Group ID"	format(uuid)
//	@Param			request			body		groupingapp.TransferOwnershipRequest	true	"New owner"
//	@Success		200				{object}	APIResponse[groupingapp.GroupResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/transfer-ownership [post]
func (h *GroupHandler) TransferOwnership(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	var req groupingapp.TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	group, err := h.groupService.TransferOwnership(c.Request.Context(), locationID, groupID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, group)
}

// ChangeSplitMode godoc
// @ID           changeGroupSplitMode
//
//	@Summary		Change split mode
//	@Description	Switch the split mode for future segments; sealed segments keep the mode they were earned under
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string								false	"Location ID (optional for dev)"
//	@Param			id				path		string								true	"Group ID"	format(uuid)
//	@Param			request			body		groupingapp.ChangeSplitModeRequest	true	"New split mode"
//	@Success		200				{object}	APIResponse[groupingapp.GroupResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/split-mode [put]
func (h *GroupHandler) ChangeSplitMode(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	var req groupingapp.ChangeSplitModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	group, err := h.groupService.ChangeSplitMode(c.Request.Context(), locationID, groupID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, group)
}

// UpdateShare godoc
// @ID           updateMemberShare
//
//	@Summary		Update a member's share parameters
//	@Description	Set a member's custom percent, role weight or hours worked; takes effect from the next segment
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			id				path		string							true	"Group ID"	format(uuid)
//	@Param			workerId		path		string							true	"Worker ID"	format(uuid)
//	@Param			request			body		groupingapp.UpdateShareRequest	true	"Share parameters"
//	@Success		200				{object}	APIResponse[groupingapp.MembershipResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/members/{workerId}/share [put]
func (h *GroupHandler) UpdateShare(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	workerID, err := uuid.Parse(c.Param("workerId"))
	if err != nil {
		h.BadRequest(c, "Invalid worker ID format")
		return
	}

	var req groupingapp.UpdateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	membership, err := h.groupService.UpdateShare(c.Request.Context(), locationID, groupID, workerID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, membership)
}

// Close godoc
// @ID           closeGroup
//
//	@Summary		Close a group
//	@Description	Close the group, seal the final segment and release all members
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			id				path		string							true	"Group ID"	format(uuid)
//	@Param			request			body		groupingapp.CloseGroupRequest	false	"Close time"
//	@Success		200				{object}	APIResponse[groupingapp.GroupResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/close [post]
func (h *GroupHandler) Close(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	var req groupingapp.CloseGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, err.Error())
		return
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	group, err := h.groupService.CloseGroup(c.Request.Context(), locationID, groupID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, group)
}

// Timeline godoc
// @ID           getGroupTimeline
//
//	@Summary		Get group timeline
//	@Description	List the group's segments in chronological order
//	@Tags			groups
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			id				path		string	true	"Group ID"	format(uuid)
//	@Success		200				{object}	APIResponse[[]groupingapp.SegmentResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/timeline [get]
func (h *GroupHandler) Timeline(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	segments, err := h.groupService.GetTimeline(c.Request.Context(), locationID, groupID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, segments)
}

// SegmentAt godoc
// @ID           getGroupSegmentAt
//
//	@Summary		Find the segment covering an instant
//	@Description	Resolve which timeline segment was live at the given time
//	@Tags			groups
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			id				path		string	true	"Group ID"	format(uuid)
//	@Param			at				query		string	true	"Instant to resolve (RFC 3339)"
//	@Success		200				{object}	APIResponse[groupingapp.SegmentResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/timeline/at [get]
func (h *GroupHandler) SegmentAt(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	at, err := time.Parse(time.RFC3339, c.Query("at"))
	if err != nil {
		h.BadRequest(c, "Invalid 'at' timestamp, expected RFC 3339")
		return
	}

	segment, err := h.groupService.FindSegmentAt(c.Request.Context(), locationID, groupID, at)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, segment)
}

// Earnings godoc
// @ID           getGroupEarnings
//
//	@Summary		Get per-segment earnings
//	@Description	Per-worker credit breakdown for each segment of the group
//	@Tags			groups
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			id				path		string	true	"Group ID"	format(uuid)
//	@Success		200				{object}	APIResponse[[]groupingapp.SegmentEarningsResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/groups/{id}/earnings [get]
func (h *GroupHandler) Earnings(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	earnings, err := h.earningsService.GroupEarnings(c.Request.Context(), locationID, groupID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, earnings)
}
