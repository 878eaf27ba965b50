package prompts

// ============================================================================
// Annotation Detection
// ============================================================================

// AnnotationSystemPrompt defines the role for reference-image inspection.
const AnnotationSystemPrompt = `You are an image inspection assistant for a video generation pipeline. You examine reference images for annotations that must not leak into generated footage.`

// AnnotationUserPrompt asks the model to report overlaid annotations only.
const AnnotationUserPrompt = `Inspect this image for overlaid annotations: captions, subtitles, watermarks, arrows, circles, scribbles, stickers or any added text.

If the image has annotations, describe each one briefly (what it is, where it sits, what it says if it is text).
If the image has none, answer exactly: "No annotations. Clean image."

Do not describe the underlying scene beyond what is needed to locate an annotation.`

// CleanPhrases are the deny-list phrases that classify a description as
// reporting a clean image. Matching is case-insensitive substring match;
// cleanup is an expensive provider call, so a description that signals
// "nothing to remove" short-circuits it.
var CleanPhrases = []string{
	"no annotation",
	"no annotations",
	"no text",
	"no visible text",
	"does not contain",
	"doesn't contain",
	"clean image",
	"no captions",
	"no watermark",
	"no overlays",
	"nothing to remove",
}

// ============================================================================
// Annotation Cleanup
// ============================================================================

// CleanupInstruction is the edit instruction sent with an annotated
// reference image. It must preserve the visual style of the frame while
// stripping everything the annotation pass found.
const CleanupInstruction = `Remove all overlaid annotations from this image: text, captions, subtitles, watermarks, arrows, circles and drawn marks. Reconstruct the covered areas to match the surrounding content. Preserve the original composition, lighting, color grading and visual style exactly. Output only the cleaned image.`

// ============================================================================
// Generation Fallback
// ============================================================================

// FallbackPromptPrefix starts the generation prompt assembled when the
// caller supplies no custom prompt.
const FallbackPromptPrefix = `Animate this scene naturally, keeping the subject and visual style of the reference image. `

// FallbackContextFormat wraps the detected annotation context into the
// fallback prompt. The argument is the annotation description.
const FallbackContextFormat = `Context detected in the reference image: %s`
