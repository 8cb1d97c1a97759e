package generator

// PostSpec describes the post requested for one sheet row.
type PostSpec struct {
	Topic  string
	Angle  string
	Format string
}
