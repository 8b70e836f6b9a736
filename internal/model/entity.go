package model

// Entity names. These double as the prefix in `<entity>ID` foreign
// key aliases, so casing matters.
const (
	EntityAppointment = "appointment"
	EntityCustomer    = "customer"
	EntityConsultant  = "consultant"
	EntityTreatment   = "treatment"
	EntityLabTest     = "labTest"
	EntityTransaction = "transaction"
	EntityBlogPost    = "blog"
)

// FilterAll disables a categorical filter dimension.
const FilterAll = "all"

// Relation declares one foreign-key join from a child collection to a
// parent collection.
type Relation struct {
	// Name prefixes the attached parent fields on the view row,
	// e.g. "customer" + "name" -> "customerName".
	Name string
	// Parent is the entity whose lookup map resolves the key.
	Parent string
	// FK is the logical foreign-key entity on the child; the key
	// resolver applies its alias list to it.
	FK string
	// Fields are the parent fields copied onto the view row.
	Fields []string
}

// EntityConfig parameterizes the join and query engines for one
// screen. One config per collection replaces the per-screen logic the
// admin front end used to duplicate.
type EntityConfig struct {
	Entity       string
	Collection   string
	SearchFields []string
	FilterDims   []string
	DateField    string
	Relations    []Relation
}

// Screens returns the per-collection engine configs.
func Screens() map[string]EntityConfig {
	return map[string]EntityConfig{
		EntityAppointment: {
			Entity:       EntityAppointment,
			Collection:   "appointments",
			SearchFields: []string{"customerName", "customerPhone", "consultantName", "code", "serviceName"},
			FilterDims:   []string{"status", "paymentStatus"},
			DateField:    "scheduledAt",
			Relations: []Relation{
				{Name: "customer", Parent: EntityCustomer, FK: EntityCustomer, Fields: []string{"name", "email", "phone"}},
				{Name: "consultant", Parent: EntityConsultant, FK: EntityConsultant, Fields: []string{"name", "email"}},
			},
		},
		EntityTreatment: {
			Entity:       EntityTreatment,
			Collection:   "treatments",
			SearchFields: []string{"customerName", "consultantName", "diagnosis", "treatmentPlan"},
			FilterDims:   []string{"reviewed"},
			DateField:    "createdAt",
			Relations: []Relation{
				{Name: "customer", Parent: EntityCustomer, FK: EntityCustomer, Fields: []string{"name", "phone"}},
				{Name: "consultant", Parent: EntityConsultant, FK: EntityConsultant, Fields: []string{"name"}},
				{Name: "appointment", Parent: EntityAppointment, FK: EntityAppointment, Fields: []string{"code", "scheduledAt"}},
			},
		},
		EntityLabTest: {
			Entity:       EntityLabTest,
			Collection:   "lab-tests",
			SearchFields: []string{"testName", "customerName", "result"},
			FilterDims:   []string{"isPositive"},
			DateField:    "testDate",
			Relations: []Relation{
				{Name: "customer", Parent: EntityCustomer, FK: EntityCustomer, Fields: []string{"name", "phone"}},
				{Name: "staff", Parent: EntityConsultant, FK: "staff", Fields: []string{"name"}},
				{Name: "treatment", Parent: EntityTreatment, FK: EntityTreatment, Fields: []string{"diagnosis"}},
			},
		},
		EntityConsultant: {
			Entity:       EntityConsultant,
			Collection:   "consultants",
			SearchFields: []string{"name", "email", "phone"},
			FilterDims:   []string{"specialty", "status"},
			DateField:    "createdAt",
		},
		EntityTransaction: {
			Entity:       EntityTransaction,
			Collection:   "transactions",
			SearchFields: []string{"code", "customerName", "appointmentCode"},
			FilterDims:   []string{"paymentStatus", "method"},
			DateField:    "createdAt",
			Relations: []Relation{
				{Name: "appointment", Parent: EntityAppointment, FK: EntityAppointment, Fields: []string{"code", "status"}},
				{Name: "customer", Parent: EntityCustomer, FK: EntityCustomer, Fields: []string{"name"}},
			},
		},
		EntityBlogPost: {
			Entity:       EntityBlogPost,
			Collection:   "blogs",
			SearchFields: []string{"title", "author", "summary"},
			FilterDims:   []string{"category", "status"},
			DateField:    "createdAt",
		},
	}
}

// Collections lists the upstream collections a snapshot fans out to.
// Customers have no standalone endpoint, the loader derives them from
// appointment records.
func Collections() []string {
	return []string{
		EntityAppointment,
		EntityConsultant,
		EntityTreatment,
		EntityLabTest,
		EntityTransaction,
		EntityBlogPost,
	}
}
