package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"edabot/lifecycle"
)

// ActionKind enumerates every callback payload the bot understands.
type ActionKind int

const (
	ActCategory ActionKind = iota
	ActDish
	ActPage
	ActShowCart
	ActClearCart
	ActBackToCategories
	ActBackToStart
	ActMakeOrder
	ActCheckout
	ActConfirmClient
	ActEditClient
	ActComment
	ActNewOrder
	ActReorder
	ActOrderSet
	ActOrderSetCourier
	ActOrderRefresh
	ActNoop
)

// Action is the parsed form of a colon-delimited callback payload. Only
// the fields relevant to the kind are populated.
type Action struct {
	Kind     ActionKind
	Category string
	DishID   int
	Page     int
	OrderID  int64
	Status   lifecycle.Status
	Topic    string
}

// ErrMalformed — the payload failed structural parsing. The dispatcher
// answers with a transient notice and no state changes.
var ErrMalformed = errors.New("malformed callback payload")

func malformed(data string) (Action, error) {
	return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
}

// ParseAction parses a callback payload once, at the boundary, so the
// handlers only ever see well-formed, typed actions.
func ParseAction(data string) (Action, error) {
	switch data {
	case "show_cart":
		return Action{Kind: ActShowCart}, nil
	case "clear_cart":
		return Action{Kind: ActClearCart}, nil
	case "back_to_categories":
		return Action{Kind: ActBackToCategories}, nil
	case "back_to_start":
		return Action{Kind: ActBackToStart}, nil
	case "make_order":
		return Action{Kind: ActMakeOrder}, nil
	case "checkout":
		return Action{Kind: ActCheckout}, nil
	case "confirm_client":
		return Action{Kind: ActConfirmClient}, nil
	case "edit_client":
		return Action{Kind: ActEditClient}, nil
	case "new_order":
		return Action{Kind: ActNewOrder}, nil
	case "noop":
		return Action{Kind: ActNoop}, nil
	}

	parts := strings.Split(data, ":")
	switch parts[0] {
	case "cat":
		if len(parts) != 2 || parts[1] == "" {
			return malformed(data)
		}
		return Action{Kind: ActCategory, Category: parts[1]}, nil

	case "dish":
		if len(parts) != 4 {
			return malformed(data)
		}
		dishID, err := strconv.Atoi(parts[2])
		if err != nil {
			return malformed(data)
		}
		page, err := strconv.Atoi(parts[3])
		if err != nil {
			return malformed(data)
		}
		return Action{Kind: ActDish, Category: parts[1], DishID: dishID, Page: page}, nil

	case "page":
		if len(parts) != 3 {
			return malformed(data)
		}
		page, err := strconv.Atoi(parts[2])
		if err != nil {
			return malformed(data)
		}
		return Action{Kind: ActPage, Category: parts[1], Page: page}, nil

	case "comment":
		if len(parts) != 2 {
			return malformed(data)
		}
		switch parts[1] {
		case "food", "delivery", "skip":
			return Action{Kind: ActComment, Topic: parts[1]}, nil
		}
		return malformed(data)

	case "reorder":
		if len(parts) != 2 {
			return malformed(data)
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return malformed(data)
		}
		return Action{Kind: ActReorder, OrderID: id}, nil

	case "order":
		if len(parts) < 3 {
			return malformed(data)
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return malformed(data)
		}
		switch parts[1] {
		case "set":
			if len(parts) != 4 {
				return malformed(data)
			}
			status := lifecycle.Status(parts[3])
			if !lifecycle.Valid(status) {
				return malformed(data)
			}
			return Action{Kind: ActOrderSet, OrderID: id, Status: status}, nil
		case "setcourier":
			if len(parts) != 3 {
				return malformed(data)
			}
			return Action{Kind: ActOrderSetCourier, OrderID: id}, nil
		case "refresh":
			if len(parts) != 3 {
				return malformed(data)
			}
			return Action{Kind: ActOrderRefresh, OrderID: id}, nil
		}
		return malformed(data)
	}

	return malformed(data)
}
