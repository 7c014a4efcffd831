package services

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"semillero-hub/models"
)

// Participation roles reported by per-user queries. Authorship checks take
// strict precedence over the anchor-membership check: a user who both anchors
// an activity and is listed as co-author is reported as co-author.
const (
	RoleMainAuthor  = "Main Author"
	RoleCoAuthor    = "Co-author"
	RoleGroupMember = "Group Member"
	RoleParticipant = "Participant"
)

// Placeholders substituted when a reference cannot be resolved. Report
// generation must survive historical data drift, so resolution gaps never
// abort an aggregation.
const (
	unknownUserName   = "Unknown user"
	unknownHotbedName = "Unknown research hotbed"
)

// ProjectView is the project detail attached to a "proyecto" activity.
type ProjectView struct {
	Name                string  `json:"name"`
	ReferenceNumber     string  `json:"reference_number"`
	StartDate           string  `json:"start_date"`
	EndDate             *string `json:"end_date,omitempty"`
	PrincipalResearcher string  `json:"principal_researcher"`
	CoResearchers       string  `json:"co_researchers,omitempty"`
}

// ProductView is the product detail attached to a "producto" activity.
type ProductView struct {
	Category        string  `json:"category"`
	Type            string  `json:"type"`
	Description     string  `json:"description"`
	PublicationDate *string `json:"publication_date,omitempty"`
}

// RecognitionView is the recognition detail attached to a "reconocimiento"
// activity.
type RecognitionView struct {
	Name              string `json:"name"`
	ProjectName       string `json:"project_name"`
	ParticipantsNames string `json:"participants_names,omitempty"`
	OrganizationName  string `json:"organization_name"`
}

// ActivityView is the enriched activity record handed to report renderers
// and API consumers.
type ActivityView struct {
	ActivityID        uint     `json:"activity_id"`
	Title             string   `json:"title"`
	Responsible       string   `json:"responsible"`
	Date              string   `json:"date"`
	Description       string   `json:"description"`
	Type              string   `json:"type"`
	StartTime         *string  `json:"start_time,omitempty"`
	EndTime           *string  `json:"end_time,omitempty"`
	DurationHours     float64  `json:"duration_hours"`
	ApprovedFreeHours bool     `json:"approved_free_hours"`
	Semester          string   `json:"semester"`
	GroupName         string   `json:"research_hotbed_name"`
	MainAuthors       []string `json:"main_authors"`
	CoAuthors         []string `json:"co_authors"`

	// Only set by per-user queries.
	ParticipationRole string `json:"participation_role,omitempty"`

	Project     *ProjectView     `json:"project,omitempty"`
	Product     *ProductView     `json:"product,omitempty"`
	Recognition *RecognitionView `json:"recognition,omitempty"`
}

// AggregationService computes the de-duplicated, enriched activity sets for
// a research hotbed or a user. All reads of one call run inside a single
// transaction so the result reflects one snapshot of the data.
type AggregationService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewAggregationService creates a new AggregationService.
func NewAggregationService(db *gorm.DB, logger *zap.Logger) *AggregationService {
	return &AggregationService{DB: db, Logger: logger}
}

// ActivitiesForHotbed returns every activity reachable from the hotbed,
// either through an anchor membership of the hotbed or through an author
// relation held by one of its memberships. An empty semester disables the
// semester filter. A hotbed without memberships yields an empty list.
func (s *AggregationService) ActivitiesForHotbed(ctx context.Context, hotbedID uint, semester string) ([]ActivityView, error) {
	views := []ActivityView{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		groupName := unknownHotbedName
		var hotbed models.ResearchHotbed
		if err := tx.First(&hotbed, hotbedID).Error; err == nil {
			groupName = hotbed.Name
		}

		var memberIDs []uint
		if err := tx.Model(&models.Membership{}).
			Where("research_hotbed_id = ?", hotbedID).
			Pluck("id", &memberIDs).Error; err != nil {
			return err
		}
		if len(memberIDs) == 0 {
			return nil
		}

		activities, err := s.collectActivities(tx, memberIDs, semester)
		if err != nil {
			return err
		}

		views, err = s.buildViews(tx, activities, viewOptions{fixedGroupName: &groupName})
		return err
	})
	if err != nil {
		s.Logger.Error("Hotbed activity aggregation failed",
			zap.Uint("research_hotbed_id", hotbedID),
			zap.String("semester", semester),
			zap.Error(err))
		return nil, err
	}
	return views, nil
}

// ActivitiesForUser returns every activity the user participates in across
// all their memberships, annotated per activity with the owning hotbed's
// name and the user's participation role.
func (s *AggregationService) ActivitiesForUser(ctx context.Context, userID uint, semester string) ([]ActivityView, error) {
	views := []ActivityView{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var memberIDs []uint
		if err := tx.Model(&models.Membership{}).
			Where("user_id = ?", userID).
			Pluck("id", &memberIDs).Error; err != nil {
			return err
		}
		if len(memberIDs) == 0 {
			return nil
		}

		activities, err := s.collectActivities(tx, memberIDs, semester)
		if err != nil {
			return err
		}

		views, err = s.buildViews(tx, activities, viewOptions{roleForUser: userID})
		return err
	})
	if err != nil {
		s.Logger.Error("User activity aggregation failed",
			zap.Uint("user_id", userID),
			zap.String("semester", semester),
			zap.Error(err))
		return nil, err
	}
	return views, nil
}

// ActivitiesForUserInHotbed returns the user's own activities within one
// hotbed: the union of the anchor and authorship paths restricted to the
// user's memberships of that hotbed.
func (s *AggregationService) ActivitiesForUserInHotbed(ctx context.Context, userID, hotbedID uint, semester string) ([]ActivityView, error) {
	views := []ActivityView{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		groupName := unknownHotbedName
		var hotbed models.ResearchHotbed
		if err := tx.First(&hotbed, hotbedID).Error; err == nil {
			groupName = hotbed.Name
		}

		var memberIDs []uint
		if err := tx.Model(&models.Membership{}).
			Where("user_id = ? AND research_hotbed_id = ?", userID, hotbedID).
			Pluck("id", &memberIDs).Error; err != nil {
			return err
		}
		if len(memberIDs) == 0 {
			return nil
		}

		activities, err := s.collectActivities(tx, memberIDs, semester)
		if err != nil {
			return err
		}

		views, err = s.buildViews(tx, activities, viewOptions{fixedGroupName: &groupName, roleForUser: userID})
		return err
	})
	if err != nil {
		s.Logger.Error("User hotbed activity aggregation failed",
			zap.Uint("user_id", userID),
			zap.Uint("research_hotbed_id", hotbedID),
			zap.String("semester", semester),
			zap.Error(err))
		return nil, err
	}
	return views, nil
}

// ActivityDetail returns the enriched view of a single activity. Unlike the
// scoped aggregations, a missing id is reported as gorm.ErrRecordNotFound.
func (s *AggregationService) ActivityDetail(ctx context.Context, activityID uint) (*ActivityView, error) {
	var view *ActivityView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			return err
		}
		views, err := s.buildViews(tx, []models.Activity{activity}, viewOptions{})
		if err != nil {
			return err
		}
		view = &views[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ActivityAuthors resolves the authorship roster of one activity into two
// ordered display-name lists (main authors, co-authors). Missing activities
// and dangling references degrade to placeholders instead of failing, so a
// report covering stale data still renders.
func (s *AggregationService) ActivityAuthors(ctx context.Context, activityID uint) (mainAuthors, coAuthors []string, err error) {
	mainAuthors, coAuthors = []string{}, []string{}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var relations []models.ActivityAuthor
		if err := tx.Where("activity_id = ?", activityID).
			Order("id ASC").
			Find(&relations).Error; err != nil {
			return err
		}
		if len(relations) == 0 {
			return nil
		}

		names, err := s.memberNames(tx, relationMembershipIDs(relations))
		if err != nil {
			return err
		}

		for _, rel := range relations {
			name, ok := names[rel.MembershipID]
			if !ok {
				name = unknownUserName
			}
			if rel.IsMainAuthor {
				mainAuthors = append(mainAuthors, name)
			} else {
				coAuthors = append(coAuthors, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return mainAuthors, coAuthors, nil
}

// collectActivities unions the anchor-membership path and the authorship
// path for the given membership ids, de-duplicated by activity id and sorted
// by date descending (stable, so equal dates keep collection order).
func (s *AggregationService) collectActivities(tx *gorm.DB, memberIDs []uint, semester string) ([]models.Activity, error) {
	direct := tx.Where("membership_id IN ?", memberIDs)
	if semester != "" {
		direct = direct.Where("semester = ?", semester)
	}
	var directActivities []models.Activity
	if err := direct.Order("id ASC").Find(&directActivities).Error; err != nil {
		return nil, err
	}

	authored := tx.Model(&models.Activity{}).
		Distinct("activities.*").
		Joins("JOIN activity_authors ON activity_authors.activity_id = activities.id").
		Where("activity_authors.membership_id IN ?", memberIDs)
	if semester != "" {
		authored = authored.Where("activities.semester = ?", semester)
	}
	var authoredActivities []models.Activity
	if err := authored.Order("activities.id ASC").Find(&authoredActivities).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	var merged []models.Activity
	for _, activity := range append(directActivities, authoredActivities...) {
		if seen[activity.ID] {
			continue
		}
		seen[activity.ID] = true
		merged = append(merged, activity)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged, nil
}

type viewOptions struct {
	// When set, every view carries this group name (hotbed-scoped queries).
	// Otherwise the name resolves through each activity's anchor membership.
	fixedGroupName *string

	// When non-zero, compute the participation role of this user per view.
	roleForUser uint
}

// buildViews enriches raw activities into ActivityViews: group name,
// authorship roster, optional participation role and the type-specific
// detail record. Lookups are batched over the whole activity set.
func (s *AggregationService) buildViews(tx *gorm.DB, activities []models.Activity, opts viewOptions) ([]ActivityView, error) {
	views := make([]ActivityView, 0, len(activities))
	if len(activities) == 0 {
		return views, nil
	}

	activityIDs := make([]uint, 0, len(activities))
	for _, a := range activities {
		activityIDs = append(activityIDs, a.ID)
	}

	var relations []models.ActivityAuthor
	if err := tx.Where("activity_id IN ?", activityIDs).
		Order("id ASC").
		Find(&relations).Error; err != nil {
		return nil, err
	}
	relationsByActivity := make(map[uint][]models.ActivityAuthor)
	for _, rel := range relations {
		relationsByActivity[rel.ActivityID] = append(relationsByActivity[rel.ActivityID], rel)
	}

	membershipIDs := relationMembershipIDs(relations)
	for _, a := range activities {
		membershipIDs = append(membershipIDs, a.MembershipID)
	}
	memberships, err := s.memberships(tx, membershipIDs)
	if err != nil {
		return nil, err
	}
	names, err := s.memberNames(tx, membershipIDs)
	if err != nil {
		return nil, err
	}
	hotbedNames, err := s.hotbedNames(tx, memberships)
	if err != nil {
		return nil, err
	}

	projects, products, recognitions, err := s.detailRecords(tx, activities)
	if err != nil {
		return nil, err
	}

	for _, activity := range activities {
		view := ActivityView{
			ActivityID:        activity.ID,
			Title:             activity.Title,
			Date:              activity.Date.Format("2006-01-02"),
			Description:       activity.Description,
			Type:              activity.Type,
			StartTime:         activity.StartTime,
			EndTime:           activity.EndTime,
			DurationHours:     activity.DurationHours,
			ApprovedFreeHours: activity.ApprovedFreeHours,
			Semester:          activity.Semester,
			MainAuthors:       []string{},
			CoAuthors:         []string{},
		}

		// The legacy responsible field falls back to the anchor member's name.
		view.Responsible = activity.Responsible
		if view.Responsible == "" {
			if name, ok := names[activity.MembershipID]; ok {
				view.Responsible = name
			} else {
				view.Responsible = unknownUserName
			}
		}

		if opts.fixedGroupName != nil {
			view.GroupName = *opts.fixedGroupName
		} else {
			view.GroupName = unknownHotbedName
			if m, ok := memberships[activity.MembershipID]; ok {
				if hotbedName, ok := hotbedNames[m.ResearchHotbedID]; ok {
					view.GroupName = hotbedName
				}
			}
		}

		for _, rel := range relationsByActivity[activity.ID] {
			name, ok := names[rel.MembershipID]
			if !ok {
				name = unknownUserName
			}
			if rel.IsMainAuthor {
				view.MainAuthors = append(view.MainAuthors, name)
			} else {
				view.CoAuthors = append(view.CoAuthors, name)
			}
		}

		if opts.roleForUser != 0 {
			view.ParticipationRole = participationRole(opts.roleForUser, activity, relationsByActivity[activity.ID], memberships)
		}

		attachDetail(&view, activity, projects, products, recognitions)
		views = append(views, view)
	}
	return views, nil
}

// participationRole applies the role precedence: main author, then co-author,
// then anchor membership, then the participant fallback.
func participationRole(userID uint, activity models.Activity, relations []models.ActivityAuthor, memberships map[uint]models.Membership) string {
	isMain, isCo := false, false
	for _, rel := range relations {
		m, ok := memberships[rel.MembershipID]
		if !ok || m.UserID != userID {
			continue
		}
		if rel.IsMainAuthor {
			isMain = true
		} else {
			isCo = true
		}
	}
	switch {
	case isMain:
		return RoleMainAuthor
	case isCo:
		return RoleCoAuthor
	}
	if m, ok := memberships[activity.MembershipID]; ok && m.UserID == userID {
		return RoleGroupMember
	}
	return RoleParticipant
}

// attachDetail selects the type-specific sub-record by case-insensitive type
// match. Unknown types and dangling detail ids attach nothing.
func attachDetail(view *ActivityView, activity models.Activity, projects map[uint]models.Project, products map[uint]models.Product, recognitions map[uint]models.Recognition) {
	switch normalizeActivityType(activity.Type) {
	case models.ActivityTypeProject:
		if activity.ProjectID == nil {
			return
		}
		p, ok := projects[*activity.ProjectID]
		if !ok {
			return
		}
		pv := &ProjectView{
			Name:                p.Name,
			ReferenceNumber:     p.ReferenceNumber,
			StartDate:           p.StartDate.Format("2006-01-02"),
			PrincipalResearcher: p.PrincipalResearcher,
			CoResearchers:       p.CoResearchers,
		}
		if p.EndDate != nil {
			end := p.EndDate.Format("2006-01-02")
			pv.EndDate = &end
		}
		view.Project = pv
	case models.ActivityTypeProduct:
		if activity.ProductID == nil {
			return
		}
		p, ok := products[*activity.ProductID]
		if !ok {
			return
		}
		pv := &ProductView{
			Category:    p.Category,
			Type:        p.Type,
			Description: p.Description,
		}
		if p.PublicationDate != nil {
			pub := p.PublicationDate.Format("2006-01-02")
			pv.PublicationDate = &pub
		}
		view.Product = pv
	case models.ActivityTypeRecognition:
		if activity.RecognitionID == nil {
			return
		}
		r, ok := recognitions[*activity.RecognitionID]
		if !ok {
			return
		}
		view.Recognition = &RecognitionView{
			Name:              r.Name,
			ProjectName:       r.ProjectName,
			ParticipantsNames: r.ParticipantsNames,
			OrganizationName:  r.OrganizationName,
		}
	}
}

// memberships loads the referenced membership rows keyed by id. Missing rows
// simply stay absent from the map (dangling references tolerated).
func (s *AggregationService) memberships(tx *gorm.DB, ids []uint) (map[uint]models.Membership, error) {
	out := make(map[uint]models.Membership)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Membership
	if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.ID] = m
	}
	return out, nil
}

// memberNames resolves membership ids to user display names through the
// membership -> user chain.
func (s *AggregationService) memberNames(tx *gorm.DB, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string)
	if len(ids) == 0 {
		return out, nil
	}
	type row struct {
		MembershipID uint
		Name         string
	}
	var rows []row
	if err := tx.Model(&models.Membership{}).
		Select("memberships.id AS membership_id, users.name AS name").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.MembershipID] = r.Name
	}
	return out, nil
}

// hotbedNames loads display names for every hotbed referenced by the given
// memberships.
func (s *AggregationService) hotbedNames(tx *gorm.DB, memberships map[uint]models.Membership) (map[uint]string, error) {
	out := make(map[uint]string)
	if len(memberships) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ResearchHotbedID)
	}
	var rows []models.ResearchHotbed
	if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, h := range rows {
		out[h.ID] = h.Name
	}
	return out, nil
}

// detailRecords batch-loads the detail records referenced by the activity set.
func (s *AggregationService) detailRecords(tx *gorm.DB, activities []models.Activity) (map[uint]models.Project, map[uint]models.Product, map[uint]models.Recognition, error) {
	var projectIDs, productIDs, recognitionIDs []uint
	for _, a := range activities {
		if a.ProjectID != nil {
			projectIDs = append(projectIDs, *a.ProjectID)
		}
		if a.ProductID != nil {
			productIDs = append(productIDs, *a.ProductID)
		}
		if a.RecognitionID != nil {
			recognitionIDs = append(recognitionIDs, *a.RecognitionID)
		}
	}

	projects := make(map[uint]models.Project)
	if len(projectIDs) > 0 {
		var rows []models.Project
		if err := tx.Where("id IN ?", projectIDs).Find(&rows).Error; err != nil {
			return nil, nil, nil, err
		}
		for _, p := range rows {
			projects[p.ID] = p
		}
	}

	products := make(map[uint]models.Product)
	if len(productIDs) > 0 {
		var rows []models.Product
		if err := tx.Where("id IN ?", productIDs).Find(&rows).Error; err != nil {
			return nil, nil, nil, err
		}
		for _, p := range rows {
			products[p.ID] = p
		}
	}

	recognitions := make(map[uint]models.Recognition)
	if len(recognitionIDs) > 0 {
		var rows []models.Recognition
		if err := tx.Where("id IN ?", recognitionIDs).Find(&rows).Error; err != nil {
			return nil, nil, nil, err
		}
		for _, r := range rows {
			recognitions[r.ID] = r
		}
	}
	return projects, products, recognitions, nil
}

func relationMembershipIDs(relations []models.ActivityAuthor) []uint {
	ids := make([]uint, 0, len(relations))
	for _, rel := range relations {
		ids = append(ids, rel.MembershipID)
	}
	return ids
}

// normalizeActivityType lowers the type tag; the legacy data mixes case.
func normalizeActivityType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
