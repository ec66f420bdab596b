package model_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSubmissionID(t *testing.T) {
	Convey("Given a participant id", t, func() {
		Convey("When generating submission ids", func() {
			a, errA := model.NewSubmissionID("alice")
			b, errB := model.NewSubmissionID("alice")

			Convey("Then they are unique and carry the participant prefix", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldNotEqual, b)
				So(strings.HasPrefix(a, "alice_"), ShouldBeTrue)

				owner, err := model.ParticipantFromID(a)
				So(err, ShouldBeNil)
				So(owner, ShouldEqual, "alice")
			})
		})

		Convey("When the participant id would break the prefix convention", func() {
			for _, bad := range []string{"", "   ", "team_red", "a b", "x/y", strings.Repeat("p", 65)} {
				_, err := model.NewSubmissionID(bad)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			}
		})
	})

	Convey("Given malformed submission ids", t, func() {
		for _, id := range []string{"", "alice", "_abc", "alice_"} {
			_, err := model.ParticipantFromID(id)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		}
	})

	Convey("Given an id with extra separators in the suffix", t, func() {
		owner, err := model.ParticipantFromID("bob_x_y")
		So(err, ShouldBeNil)
		So(owner, ShouldEqual, "bob")
	})
}

func TestSubmissionValidate(t *testing.T) {
	Convey("Given a new submission", t, func() {
		sub, err := model.NewSubmission("carol", 1, "carol.py", time.Now())
		So(err, ShouldBeNil)

		Convey("Then it is pending and valid", func() {
			So(sub.Status, ShouldEqual, model.StatusPending)
			So(sub.Ranked(), ShouldBeFalse)
			So(sub.Validate(), ShouldBeNil)
		})

		Convey("When the participant does not match the id prefix", func() {
			sub.ParticipantID = "mallory"
			So(errors.Is(sub.Validate(), model.ErrValidation), ShouldBeTrue)
		})

		Convey("When the status is unknown", func() {
			sub.Status = "uploaded"
			So(errors.Is(sub.Validate(), model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("Given wire status values", t, func() {
		s, err := model.ParseStatus(" Scored ")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, model.StatusScored)
		So(s.Final(), ShouldBeTrue)
		So(model.StatusPending.Final(), ShouldBeFalse)

		_, err = model.ParseStatus("success")
		So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
	})
}

func TestQuotaExceededError(t *testing.T) {
	Convey("Given a quota error", t, func() {
		var err error = &model.QuotaExceededError{ParticipantID: "bob", TaskID: 2, Limit: 3, Used: 3}

		Convey("Then it matches the sentinel and names the limit", func() {
			So(errors.Is(err, model.ErrQuotaExceeded), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "submission limit")
			So(err.Error(), ShouldContainSubstring, "max 3")

			var qe *model.QuotaExceededError
			So(errors.As(err, &qe), ShouldBeTrue)
			So(qe.Limit, ShouldEqual, 3)
		})
	})
}
