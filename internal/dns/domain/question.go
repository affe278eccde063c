package domain

// Question is one entry of the question section: the name being asked about
// together with the record type and class.
type Question struct {
	Name  string
	Type  RRType
	Class RRClass
}

// NewQuestion constructs a Question for name, normalising it to FQDN form.
// Name syntax is checked by the wire codec, which owns the length rules.
func NewQuestion(name string, rrtype RRType, class RRClass) Question {
	return Question{
		Name:  FQDN(name),
		Type:  rrtype,
		Class: class,
	}
}

// String renders the question the way dig prints it.
func (q Question) String() string {
	return q.Name + "\t" + q.Class.String() + "\t" + q.Type.String()
}
