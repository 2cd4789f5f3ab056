package sessions

// Navigator sends the user to another view. The store uses it to return to the login view.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) {
	f(route)
}
