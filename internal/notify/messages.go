package notify

import "fmt"

// URLRequired is sent when generation is requested without a URL.
func URLRequired() Notification {
	return Notification{Level: Error, Subject: "URL Required", Body: "Please enter a blog URL to generate a post"}
}

// Generated is sent when a post or thread is ready for review.
func Generated(isThread bool, segments int) Notification {
	if isThread {
		return Notification{Level: Success, Subject: "Thread Generated!", Body: fmt.Sprintf("Your thread with %d posts is ready for review", segments)}
	}
	return Notification{Level: Success, Subject: "Post Generated!", Body: "Your post is ready for review"}
}

// Published is sent after a successful publish.
func Published(isThread bool, posts, images int, simulated bool) Notification {
	imageMessage := ""
	if images == 1 {
		imageMessage = " with 1 image attached"
	} else if images > 1 {
		imageMessage = fmt.Sprintf(" with %d different images attached", images)
	}

	n := Notification{Level: Success}
	if isThread {
		n.Subject = "Thread Posted Successfully!"
		n.Body = fmt.Sprintf("Your thread with %d posts is now live%s", posts, imageMessage)
	} else {
		n.Subject = "Post Published Successfully!"
		n.Body = "Your post is now live" + imageMessage
	}
	if simulated {
		n.Level = Info
		n.Body += " (simulated: the app's access level cannot post)"
	}
	return n
}

// ImageAttached is sent when an image is attached to a segment. index is
// zero based.
func ImageAttached(index int) Notification {
	return Notification{Level: Info, Subject: "Image uploaded", Body: fmt.Sprintf("Image added to post %d", index+1)}
}

// ImageRemoved is sent when an image is detached from a segment.
func ImageRemoved(index int) Notification {
	return Notification{Level: Info, Subject: "Image removed", Body: fmt.Sprintf("Image removed from post %d", index+1)}
}

// FileTooLarge is sent when an image exceeds the size limit.
func FileTooLarge() Notification {
	return Notification{Level: Error, Subject: "File too large", Body: "Please upload an image smaller than 5MB"}
}

// AuthRequired is sent when publishing needs a login first.
func AuthRequired(loginURL string) Notification {
	return Notification{Level: Error, Subject: "Login required", Body: "Please authenticate with X first: " + loginURL}
}

// Failed reports an error from a step of the workflow.
func Failed(subject string, err error) Notification {
	return Notification{Level: Error, Subject: subject, Body: err.Error()}
}

// SimilarPost warns that a post close to the one about to be published
// went out before.
func SimilarPost(similarity float32, url string) Notification {
	body := fmt.Sprintf("A previously published post is %.0f%% similar", similarity*100)
	if url != "" {
		body += ": " + url
	}
	return Notification{Level: Info, Subject: "Similar post found", Body: body}
}
